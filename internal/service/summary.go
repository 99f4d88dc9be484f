package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/display"
	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// forecastPayload is the subset of the forecast body the summary reads.
type forecastPayload struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Time                string  `json:"time"`
		Temperature         float64 `json:"temperature_2m"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		IsDay               int     `json:"is_day"`
		Precipitation       float64 `json:"precipitation"`
		WeatherCode         int     `json:"weather_code"`
		PressureMSL         float64 `json:"pressure_msl"`
		WindSpeed           float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time                     []string  `json:"time"`
		Temperature              []float64 `json:"temperature_2m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		WeatherCode              []int     `json:"weather_code"`
		Visibility               []float64 `json:"visibility"`
		IsDay                    []int     `json:"is_day"`
	} `json:"hourly"`
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weather_code"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
		Sunrise          []string  `json:"sunrise"`
		Sunset           []string  `json:"sunset"`
		DaylightDuration []float64 `json:"daylight_duration"`
	} `json:"daily"`
}

// at returns s[i], or the zero value when the provider sent a short array.
func at[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}

// BuildSummary digests a forecast payload fetched in units `from` into a
// ForecastSummary expressed in units `to`. Hourly entries start at the first
// hour after now in loc and span hours entries (clamped to 12..48).
func BuildSummary(payload []byte, from, to models.Units, loc *time.Location, now time.Time, hours int) (models.ForecastSummary, error) {
	var p forecastPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.ForecastSummary{}, fmt.Errorf("decode forecast payload: %w", err)
	}
	conv := display.Converter{From: from, To: to}

	tz := p.Timezone
	if tz == "" && loc != nil {
		tz = loc.String()
	}
	out := models.ForecastSummary{
		Units:    to,
		Timezone: tz,
		Current: models.CurrentSummary{
			Time:          p.Current.Time,
			Temperature:   conv.Temperature(p.Current.Temperature),
			FeelsLike:     conv.Temperature(p.Current.ApparentTemperature),
			Humidity:      p.Current.RelativeHumidity,
			WindSpeed:     conv.Speed(p.Current.WindSpeed),
			Precipitation: conv.Precipitation(p.Current.Precipitation),
			Pressure:      conv.Pressure(p.Current.PressureMSL),
			IsDay:         p.Current.IsDay == 1,
			Description:   display.Description(p.Current.WeatherCode),
			Icon:          display.IconCode(p.Current.WeatherCode, p.Current.IsDay),
		},
	}

	start, end := display.SelectHourlyWindow(p.Hourly.Time, loc, now, hours)
	out.Hourly = make([]models.HourlySummary, 0, end-start)
	for i := start; i < end; i++ {
		code := at(p.Hourly.WeatherCode, i)
		out.Hourly = append(out.Hourly, models.HourlySummary{
			Time:                     p.Hourly.Time[i],
			Temperature:              conv.Temperature(at(p.Hourly.Temperature, i)),
			PrecipitationProbability: at(p.Hourly.PrecipitationProbability, i),
			Visibility:               conv.Visibility(at(p.Hourly.Visibility, i)),
			Description:              display.Description(code),
			Icon:                     display.IconCode(code, at(p.Hourly.IsDay, i)),
		})
	}

	out.Daily = make([]models.DailySummary, 0, len(p.Daily.Time))
	for i, date := range p.Daily.Time {
		code := at(p.Daily.WeatherCode, i)
		out.Daily = append(out.Daily, models.DailySummary{
			Date:             date,
			TemperatureMax:   conv.Temperature(at(p.Daily.TemperatureMax, i)),
			TemperatureMin:   conv.Temperature(at(p.Daily.TemperatureMin, i)),
			PrecipitationSum: conv.Precipitation(at(p.Daily.PrecipitationSum, i)),
			Sunrise:          at(p.Daily.Sunrise, i),
			Sunset:           at(p.Daily.Sunset, i),
			Daylight:         display.FormatDuration(at(p.Daily.DaylightDuration, i)),
			Description:      display.Description(code),
			Icon:             display.IconCode(code, 1),
		})
	}
	return out, nil
}
