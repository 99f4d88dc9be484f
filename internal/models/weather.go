package models

import "encoding/json"

// Units is the unit system requested from the forecast provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// WeatherQuery identifies one forecast request. Its fields are already validated.
type WeatherQuery struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// WeatherPayload is the forecast provider body, passed through verbatim.
type WeatherPayload = json.RawMessage

// ImagePayload is the image provider body, passed through verbatim.
type ImagePayload = json.RawMessage
