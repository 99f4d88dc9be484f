package display

import (
	"math"
	"testing"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		c, f float64
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{37, 98.6},
	}
	for _, tt := range tests {
		if got := ConvertTemperature(tt.c); !approx(got, tt.f) {
			t.Errorf("ConvertTemperature(%v) = %v, want %v", tt.c, got, tt.f)
		}
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"KmhToMph", KmhToMph(100), 62.1371},
		{"MmToInches", MmToInches(25.4), 1},
		{"HpaToInHg", HpaToInHg(1013.25), 29.9212},
		{"MetersToKm", MetersToKm(2500), 2.5},
		{"MetersToMiles", MetersToMiles(1609.344), 1},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-3 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.2345, 2); got != 1.23 {
		t.Errorf("Round(1.2345, 2) = %v, want 1.23", got)
	}
	if got := Round(2.5, 0); got != 3 {
		t.Errorf("Round(2.5, 0) = %v, want 3", got)
	}
}

func TestConverter_MetricToImperial(t *testing.T) {
	c := Converter{From: models.UnitsMetric, To: models.UnitsImperial}
	if got := c.Temperature(20); got != 68 {
		t.Errorf("Temperature(20) = %v, want 68", got)
	}
	if got := c.Speed(10); got != 6.2 {
		t.Errorf("Speed(10) = %v, want 6.2", got)
	}
	if got := c.Precipitation(12.7); got != 0.5 {
		t.Errorf("Precipitation(12.7) = %v, want 0.5", got)
	}
	if got := c.Pressure(1013.25); got != 29.92 {
		t.Errorf("Pressure(1013.25) = %v, want 29.92", got)
	}
	if got := c.Visibility(16093.44); got != 10 {
		t.Errorf("Visibility(16093.44) = %v, want 10", got)
	}
}

func TestConverter_ImperialToMetric(t *testing.T) {
	c := Converter{From: models.UnitsImperial, To: models.UnitsMetric}
	if got := c.Temperature(68); got != 20 {
		t.Errorf("Temperature(68) = %v, want 20", got)
	}
	if got := c.Temperature(32); got != 0 {
		t.Errorf("Temperature(32) = %v, want 0", got)
	}
	if got := c.Speed(10); got != 16.1 {
		t.Errorf("Speed(10) = %v, want 16.1", got)
	}
	if got := c.Precipitation(0.5); got != 12.7 {
		t.Errorf("Precipitation(0.5) = %v, want 12.7", got)
	}
}

func TestConverter_RoundTrip(t *testing.T) {
	there := Converter{From: models.UnitsMetric, To: models.UnitsImperial}
	back := Converter{From: models.UnitsImperial, To: models.UnitsMetric}
	for _, c := range []float64{-40, 0, 12.5, 37} {
		if got := back.Temperature(CelsiusToFahrenheit(c)); got != Round(c, 1) {
			t.Errorf("round trip of %v°C = %v", c, got)
		}
	}
	if got := back.Speed(KmhToMph(50)); got != 50 {
		t.Errorf("round trip of 50 km/h = %v", got)
	}
	if got := there.Precipitation(back.Precipitation(1)); got != 1 {
		t.Errorf("round trip of 1 in = %v", got)
	}
}

func TestConverter_PassThrough(t *testing.T) {
	pairs := []Converter{
		{From: models.UnitsMetric, To: models.UnitsMetric},
		{From: models.UnitsImperial, To: models.UnitsImperial},
	}
	for _, c := range pairs {
		if got := c.Temperature(21.04); got != 21 {
			t.Errorf("%v Temperature(21.04) = %v, want 21", c, got)
		}
		if got := c.Speed(5.56); got != 5.6 {
			t.Errorf("%v Speed(5.56) = %v, want 5.6", c, got)
		}
	}
	metric := Converter{From: models.UnitsMetric, To: models.UnitsMetric}
	if got := metric.Pressure(1013.4); got != 1013 {
		t.Errorf("metric Pressure(1013.4) = %v, want 1013", got)
	}
	if got := metric.Visibility(24140); got != 24.1 {
		t.Errorf("metric Visibility(24140) = %v, want 24.1", got)
	}
}
