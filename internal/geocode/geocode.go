// Package geocode maps raw geocoding provider records to GeocodeResult values.
// Everything here is pure so it can be exercised without a transport.
package geocode

import (
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Record is one raw result as returned by the geocoding provider.
type Record struct {
	Formatted  string     `json:"formatted"`
	Components Components `json:"components"`
	Geometry   struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Components holds the administrative names of a Record.
type Components struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	State   string `json:"state"`
	County  string `json:"county"`
	Country string `json:"country"`
}

// Annotations holds provider annotations; any of them may be missing.
type Annotations struct {
	Flag     string `json:"flag"`
	Timezone *struct {
		Name string `json:"name"`
	} `json:"timezone,omitempty"`
}

// Normalize converts a Record into a GeocodeResult. A missing timezone
// annotation is logged and replaced by "" rather than failing the record.
func Normalize(r Record, logger *zap.Logger) models.GeocodeResult {
	res := models.GeocodeResult{
		Formatted: r.Formatted,
		City:      firstNonEmpty(r.Components.City, r.Components.Town, r.Components.Village),
		State:     r.Components.State,
		County:    r.Components.County,
		Country:   r.Components.Country,
		Geometry: models.Coordinates{
			Latitude:  r.Geometry.Lat,
			Longitude: r.Geometry.Lng,
		},
	}
	if r.Annotations != nil {
		res.Flag = r.Annotations.Flag
		if r.Annotations.Timezone != nil {
			res.Timezone = r.Annotations.Timezone.Name
		}
	}
	if res.Timezone == "" && logger != nil {
		logger.Warn("geocode result missing timezone", zap.String("formatted", r.Formatted))
	}
	return res
}

// identity is the composite key two results must not share.
type identity struct {
	formatted string
	lat, lng  float64
}

// Dedupe drops results whose (formatted, latitude, longitude) triple was
// already seen, preserving first-seen order. It never returns nil.
func Dedupe(results []models.GeocodeResult) []models.GeocodeResult {
	out := make([]models.GeocodeResult, 0, len(results))
	seen := make(map[identity]struct{}, len(results))
	for _, r := range results {
		id := identity{r.Formatted, r.Geometry.Latitude, r.Geometry.Longitude}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NormalizeAll maps every record and removes duplicates.
func NormalizeAll(records []Record, logger *zap.Logger) []models.GeocodeResult {
	mapped := make([]models.GeocodeResult, 0, len(records))
	for _, r := range records {
		mapped = append(mapped, Normalize(r, logger))
	}
	return Dedupe(mapped)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
