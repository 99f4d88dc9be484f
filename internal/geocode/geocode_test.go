package geocode

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const londonRecord = `{
	"formatted": "London, Greater London, England, United Kingdom",
	"components": {"city": "London", "state": "England", "county": "Greater London", "country": "United Kingdom"},
	"geometry": {"lat": 51.5073, "lng": -0.1276},
	"annotations": {"flag": "🇬🇧", "timezone": {"name": "Europe/London"}}
}`

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return r
}

func TestNormalize_FullRecord(t *testing.T) {
	got := Normalize(decodeRecord(t, londonRecord), zap.NewNop())

	want := models.GeocodeResult{
		Formatted: "London, Greater London, England, United Kingdom",
		City:      "London",
		State:     "England",
		County:    "Greater London",
		Country:   "United Kingdom",
		Timezone:  "Europe/London",
		Geometry:  models.Coordinates{Latitude: 51.5073, Longitude: -0.1276},
		Flag:      "🇬🇧",
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

// TestNormalize_MissingTimezone verifies that a record without a timezone
// annotation maps to an empty timezone and logs a diagnostic.
func TestNormalize_MissingTimezone(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	tests := []struct {
		name string
		raw  string
	}{
		{"no annotations", `{"formatted": "Nowhere", "geometry": {"lat": 1, "lng": 2}}`},
		{"annotations without timezone", `{"formatted": "Nowhere", "geometry": {"lat": 1, "lng": 2}, "annotations": {"flag": "x"}}`},
		{"empty timezone name", `{"formatted": "Nowhere", "geometry": {"lat": 1, "lng": 2}, "annotations": {"timezone": {"name": ""}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := logs.Len()
			got := Normalize(decodeRecord(t, tc.raw), logger)
			if got.Timezone != "" {
				t.Errorf("Timezone = %q, want empty", got.Timezone)
			}
			if logs.Len() != before+1 {
				t.Errorf("expected one diagnostic log entry, got %d", logs.Len()-before)
			}
		})
	}
}

func TestNormalize_CityFallback(t *testing.T) {
	tests := []struct {
		name string
		comp Components
		want string
	}{
		{"city", Components{City: "A", Town: "B", Village: "C"}, "A"},
		{"town", Components{Town: "B", Village: "C"}, "B"},
		{"village", Components{Village: "C"}, "C"},
		{"none", Components{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(Record{Components: tc.comp}, nil)
			if got.City != tc.want {
				t.Errorf("City = %q, want %q", got.City, tc.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	a := models.GeocodeResult{Formatted: "Paris, France", Geometry: models.Coordinates{Latitude: 48.85, Longitude: 2.35}}
	b := models.GeocodeResult{Formatted: "Paris, Texas", Geometry: models.Coordinates{Latitude: 33.66, Longitude: -95.55}}
	aOtherCoords := models.GeocodeResult{Formatted: "Paris, France", Geometry: models.Coordinates{Latitude: 48.86, Longitude: 2.35}}
	aDupWithFlag := a
	aDupWithFlag.Flag = "🇫🇷"

	got := Dedupe([]models.GeocodeResult{a, b, aDupWithFlag, aOtherCoords, b})
	want := []models.GeocodeResult{a, b, aOtherCoords}
	if len(got) != len(want) {
		t.Fatalf("Dedupe() len = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dedupe()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDedupe_Empty(t *testing.T) {
	got := Dedupe(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Dedupe(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestNormalizeAll_NoDuplicateTriples(t *testing.T) {
	r := decodeRecord(t, londonRecord)
	results := NormalizeAll([]Record{r, r, r}, zap.NewNop())
	if len(results) != 1 {
		t.Fatalf("NormalizeAll() len = %d, want 1", len(results))
	}
}
