package models

// SummaryQuery is a validated summary request. Units is empty when the caller
// did not ask for a specific system.
type SummaryQuery struct {
	WeatherQuery
	Units Units
	Hours int
}

// ForecastSummary is the dashboard digest built from a WeatherPayload.
type ForecastSummary struct {
	Units    Units           `json:"units"`
	Timezone string          `json:"timezone"`
	Current  CurrentSummary  `json:"current"`
	Hourly   []HourlySummary `json:"hourly"`
	Daily    []DailySummary  `json:"daily"`
}

type CurrentSummary struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feelsLike"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
	Pressure      float64 `json:"pressure"`
	IsDay         bool    `json:"isDay"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
}

type HourlySummary struct {
	Time                     string  `json:"time"`
	Temperature              float64 `json:"temperature"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
	Visibility               float64 `json:"visibility"`
	Description              string  `json:"description"`
	Icon                     string  `json:"icon"`
}

type DailySummary struct {
	Date             string  `json:"date"`
	TemperatureMax   float64 `json:"temperatureMax"`
	TemperatureMin   float64 `json:"temperatureMin"`
	PrecipitationSum float64 `json:"precipitationSum"`
	Sunrise          string  `json:"sunrise"`
	Sunset           string  `json:"sunset"`
	Daylight         string  `json:"daylight"`
	Description      string  `json:"description"`
	Icon             string  `json:"icon"`
}
