package cache

import (
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Endpoint names double as key prefixes and metric labels.
const (
	EndpointGeocode = "geocode"
	EndpointWeather = "weather"
	EndpointImage   = "image"
)

// GeocodeKey returns the cache key for a place search.
func GeocodeKey(query string) string {
	return EndpointGeocode + ":" + normalizeQuery(query)
}

// ImageKey returns the cache key for a background image search.
func ImageKey(query string) string {
	return EndpointImage + ":" + normalizeQuery(query)
}

// WeatherKey returns the cache key for a forecast. Coordinates are formatted
// canonically so "52.520" and "52.52" share an entry.
func WeatherKey(q models.WeatherQuery) string {
	return EndpointWeather + ":" + formatCoord(q.Latitude) + ":" + formatCoord(q.Longitude) + ":" + q.Timezone
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func formatCoord(v float64) string {
	if v == 0 {
		v = 0 // folds -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
