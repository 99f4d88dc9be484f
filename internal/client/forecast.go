package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const ProviderForecast = "forecast"

// ForecastFieldsVersion names the field set below. Bump it when the lists
// change so cached payloads of the old shape are easy to spot.
const ForecastFieldsVersion = "v1"

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "is_day",
		"precipitation", "weather_code", "pressure_msl", "wind_speed_10m", "wind_direction_10m",
	}
	hourlyFields = []string{
		"temperature_2m", "precipitation_probability", "weather_code", "visibility", "is_day",
	}
	dailyFields = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min", "precipitation_sum",
		"sunrise", "sunset", "daylight_duration", "uv_index_max",
	}
)

// ForecastClient fetches forecasts from an Open-Meteo-compatible API.
type ForecastClient struct {
	upstream
	apiURL string
	units  models.Units
}

type forecastError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// NewForecastClient creates a ForecastClient that requests values in units.
func NewForecastClient(apiURL string, units models.Units, opts Options) (*ForecastClient, error) {
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid forecast API URL: %w", err)
	}
	if units == "" {
		units = models.UnitsMetric
	}
	return &ForecastClient{
		upstream: newUpstream(ProviderForecast, opts, forecastMessage),
		apiURL:   apiURL,
		units:    units,
	}, nil
}

func forecastMessage(body []byte) string {
	var e forecastError
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Reason
}

// Units reports the unit system payloads are fetched in.
func (c *ForecastClient) Units() models.Units {
	return c.units
}

// Forecast returns the provider body for q verbatim.
func (c *ForecastClient) Forecast(ctx context.Context, q models.WeatherQuery) (models.WeatherPayload, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("timezone", q.Timezone)
	params.Set("current", strings.Join(currentFields, ","))
	params.Set("hourly", strings.Join(hourlyFields, ","))
	params.Set("daily", strings.Join(dailyFields, ","))
	if c.units == models.UnitsImperial {
		params.Set("temperature_unit", "fahrenheit")
		params.Set("wind_speed_unit", "mph")
		params.Set("precipitation_unit", "inch")
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.get(ctx, req)
	if err != nil {
		return nil, err
	}

	var e forecastError
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, &ProviderError{Provider: c.provider, Err: ErrUpstreamFailure, Message: "parse response", Cause: fmt.Errorf("%w: %v", errParse, err)}
	}
	if e.Error {
		return nil, &ProviderError{Provider: c.provider, Err: ErrUpstreamFailure, Message: e.Reason}
	}
	return models.WeatherPayload(body), nil
}
