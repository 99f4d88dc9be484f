// Package display holds the pure conversion and labelling helpers used to
// turn forecast payloads into dashboard-ready values.
package display

import (
	"math"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const (
	mphPerKmh     = 0.621371
	mmPerInch     = 25.4
	inHgPerHpa    = 0.0295299830714
	metersPerMile = 1609.344
)

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ConvertTemperature is the dashboard's metric-to-imperial temperature transform.
func ConvertTemperature(c float64) float64 {
	return CelsiusToFahrenheit(c)
}

// FahrenheitToCelsius converts °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// KmhToMph converts km/h to mph.
func KmhToMph(kmh float64) float64 {
	return kmh * mphPerKmh
}

// MphToKmh converts mph to km/h.
func MphToKmh(mph float64) float64 {
	return mph / mphPerKmh
}

// InchesToMm converts inches to millimetres.
func InchesToMm(in float64) float64 {
	return in * mmPerInch
}

// MmToInches converts millimetres to inches.
func MmToInches(mm float64) float64 {
	return mm / mmPerInch
}

// HpaToInHg converts hectopascals to inches of mercury.
func HpaToInHg(hpa float64) float64 {
	return hpa * inHgPerHpa
}

// MetersToKm converts metres to kilometres.
func MetersToKm(m float64) float64 {
	return m / 1000
}

// MetersToMiles converts metres to statute miles.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Converter converts provider values from the unit system the payload was
// fetched in to the one the caller wants displayed. Same-system pairs only round.
type Converter struct {
	From models.Units
	To   models.Units
}

func (c Converter) toImperial() bool {
	return c.From != models.UnitsImperial && c.To == models.UnitsImperial
}

func (c Converter) toMetric() bool {
	return c.From == models.UnitsImperial && c.To != models.UnitsImperial
}

// Temperature converts a temperature value.
func (c Converter) Temperature(v float64) float64 {
	switch {
	case c.toImperial():
		v = CelsiusToFahrenheit(v)
	case c.toMetric():
		v = FahrenheitToCelsius(v)
	}
	return Round(v, 1)
}

// Speed converts a wind speed value.
func (c Converter) Speed(v float64) float64 {
	switch {
	case c.toImperial():
		v = KmhToMph(v)
	case c.toMetric():
		v = MphToKmh(v)
	}
	return Round(v, 1)
}

// Precipitation converts a precipitation amount. Inches keep two decimals.
func (c Converter) Precipitation(v float64) float64 {
	switch {
	case c.toImperial():
		return Round(MmToInches(v), 2)
	case c.toMetric():
		return Round(InchesToMm(v), 1)
	case c.To == models.UnitsImperial:
		return Round(v, 2)
	}
	return Round(v, 1)
}

// Pressure converts a pressure reading. The provider always reports hPa.
func (c Converter) Pressure(v float64) float64 {
	if c.To == models.UnitsImperial {
		return Round(HpaToInHg(v), 2)
	}
	return Round(v, 0)
}

// Visibility converts a visibility distance. The provider reports metres;
// the result is kilometres (metric) or miles (imperial).
func (c Converter) Visibility(v float64) float64 {
	if c.To == models.UnitsImperial {
		return Round(MetersToMiles(v), 1)
	}
	return Round(MetersToKm(v), 1)
}
