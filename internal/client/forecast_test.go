package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const forecastBody = `{"latitude":52.52,"longitude":13.41,"timezone":"Europe/Berlin","current":{"temperature_2m":12.3},"hourly":{"time":[]},"daily":{"time":[]}}`

func forecastServer(t *testing.T, got *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.URL.Query())
		_, _ = w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestForecastClient_Forecast_Metric(t *testing.T) {
	var got atomic.Value
	srv := forecastServer(t, &got)

	c, err := NewForecastClient(srv.URL, models.UnitsMetric, Options{})
	if err != nil {
		t.Fatalf("NewForecastClient() error = %v", err)
	}
	payload, err := c.Forecast(context.Background(), models.WeatherQuery{Latitude: 52.52, Longitude: 13.41, Timezone: "Europe/Berlin"})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if string(payload) != forecastBody {
		t.Errorf("payload not passed through verbatim: %s", payload)
	}

	q := got.Load().(url.Values)
	if q.Get("latitude") != "52.52" || q.Get("longitude") != "13.41" || q.Get("timezone") != "Europe/Berlin" {
		t.Errorf("query = %v", q)
	}
	for _, section := range []string{"current", "hourly", "daily"} {
		if q.Get(section) == "" {
			t.Errorf("missing %s field list", section)
		}
	}
	if !strings.Contains(q.Get("daily"), "daylight_duration") {
		t.Errorf("daily = %q, want daylight_duration", q.Get("daily"))
	}
	if q.Get("temperature_unit") != "" {
		t.Errorf("metric request should use provider defaults, got temperature_unit=%q", q.Get("temperature_unit"))
	}
}

func TestForecastClient_Forecast_Imperial(t *testing.T) {
	var got atomic.Value
	srv := forecastServer(t, &got)

	c, _ := NewForecastClient(srv.URL, models.UnitsImperial, Options{})
	if c.Units() != models.UnitsImperial {
		t.Fatalf("Units() = %q", c.Units())
	}
	if _, err := c.Forecast(context.Background(), models.WeatherQuery{Latitude: 1, Longitude: 2, Timezone: "UTC"}); err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	q := got.Load().(url.Values)
	if q.Get("temperature_unit") != "fahrenheit" || q.Get("wind_speed_unit") != "mph" || q.Get("precipitation_unit") != "inch" {
		t.Errorf("imperial params missing: %v", q)
	}
}

func TestForecastClient_ProviderErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"Cannot initialize WeatherVariable from invalid String value"}`))
	}))
	defer srv.Close()

	c, _ := NewForecastClient(srv.URL, "", Options{})
	_, err := c.Forecast(context.Background(), models.WeatherQuery{Timezone: "UTC"})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("Forecast() error = %v, want ErrUpstreamFailure", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || !strings.Contains(pe.Message, "WeatherVariable") {
		t.Errorf("error = %v, want provider reason", err)
	}
}

func TestForecastClient_DefaultUnits(t *testing.T) {
	c, _ := NewForecastClient("http://localhost", "", Options{})
	if c.Units() != models.UnitsMetric {
		t.Errorf("Units() = %q, want metric", c.Units())
	}
}
