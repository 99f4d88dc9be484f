// Package testhelpers provides stub upstream providers for handler and
// service tests. Each stub counts the requests it receives.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// StubProvider is an httptest server that replies with a configurable status and body.
type StubProvider struct {
	Server *httptest.Server

	calls atomic.Int32

	mu     sync.Mutex
	status int
	body   string
	last   *http.Request
}

// NewStubProvider starts a provider answering 200 with body. It is closed on test cleanup.
func NewStubProvider(t *testing.T, body string) *StubProvider {
	t.Helper()
	s := &StubProvider{status: http.StatusOK, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *StubProvider) serve(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	s.mu.Lock()
	status, body := s.status, s.body
	s.last = r.Clone(r.Context())
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// URL returns the stub's base URL.
func (s *StubProvider) URL() string {
	return s.Server.URL
}

// Calls returns the number of requests served so far.
func (s *StubProvider) Calls() int {
	return int(s.calls.Load())
}

// Respond changes the reply for subsequent requests.
func (s *StubProvider) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// LastRequest returns a copy of the most recent request, or nil.
func (s *StubProvider) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// StubUpstreams bundles one stub per provider, preloaded with valid replies.
type StubUpstreams struct {
	Geocode  *StubProvider
	Forecast *StubProvider
	Imagery  *StubProvider
}

// NewStubUpstreams starts the three provider stubs.
func NewStubUpstreams(t *testing.T) *StubUpstreams {
	t.Helper()
	return &StubUpstreams{
		Geocode:  NewStubProvider(t, GeocodeBody),
		Forecast: NewStubProvider(t, ForecastBody(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 72, 3)),
		Imagery:  NewStubProvider(t, ImageBody),
	}
}

// GeocodeBody holds two records, the second a duplicate of the first.
const GeocodeBody = `{
  "results": [
    {
      "formatted": "Berlin, Germany",
      "components": {"city": "Berlin", "state": "Berlin", "country": "Germany"},
      "geometry": {"lat": 52.5170365, "lng": 13.3888599},
      "annotations": {"flag": "🇩🇪", "timezone": {"name": "Europe/Berlin"}}
    },
    {
      "formatted": "Berlin, Germany",
      "components": {"city": "Berlin", "state": "Berlin", "country": "Germany"},
      "geometry": {"lat": 52.5170365, "lng": 13.3888599},
      "annotations": {"flag": "🇩🇪", "timezone": {"name": "Europe/Berlin"}}
    }
  ],
  "status": {"code": 200, "message": "OK"},
  "total_results": 2
}`

// EmptyGeocodeBody is a successful search without matches.
const EmptyGeocodeBody = `{"results":[],"status":{"code":200,"message":"OK"},"total_results":0}`

// ImageBody is a random photo reply.
const ImageBody = `{"id":"Dwu85P9SOIk","urls":{"raw":"https://images.example/raw","regular":"https://images.example/regular","small":"https://images.example/small"},"user":{"name":"Test Photographer"}}`

// ForecastBody builds a forecast payload in provider shape with hourly
// entries starting at start (local time of the payload) and days daily entries.
func ForecastBody(start time.Time, hours, days int) string {
	hourlyTime := make([]string, hours)
	temps := make([]float64, hours)
	probs := make([]float64, hours)
	codes := make([]int, hours)
	vis := make([]float64, hours)
	isDay := make([]int, hours)
	for i := 0; i < hours; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		hourlyTime[i] = t.Format("2006-01-02T15:04")
		temps[i] = 10 + float64(i%12)
		probs[i] = float64((i * 5) % 100)
		codes[i] = []int{0, 2, 61, 95}[i%4]
		vis[i] = 24140
		if h := t.Hour(); h >= 7 && h < 19 {
			isDay[i] = 1
		}
	}

	dailyTime := make([]string, days)
	sunrise := make([]string, days)
	sunset := make([]string, days)
	maxT := make([]float64, days)
	minT := make([]float64, days)
	precip := make([]float64, days)
	dcodes := make([]int, days)
	daylight := make([]float64, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		dailyTime[i] = d.Format("2006-01-02")
		sunrise[i] = d.Format("2006-01-02") + "T06:45"
		sunset[i] = d.Format("2006-01-02") + "T18:10"
		maxT[i] = 15
		minT[i] = 5
		precip[i] = 2.5
		dcodes[i] = 3
		daylight[i] = 41100
	}

	payload := map[string]any{
		"latitude":  52.52,
		"longitude": 13.41,
		"timezone":  "UTC",
		"current": map[string]any{
			"time":                 start.Format("2006-01-02T15:04"),
			"temperature_2m":       12.3,
			"relative_humidity_2m": 71,
			"apparent_temperature": 10.9,
			"is_day":               1,
			"precipitation":        0.2,
			"weather_code":         61,
			"pressure_msl":         1013.2,
			"wind_speed_10m":       14.4,
			"wind_direction_10m":   250,
		},
		"hourly": map[string]any{
			"time":                      hourlyTime,
			"temperature_2m":            temps,
			"precipitation_probability": probs,
			"weather_code":              codes,
			"visibility":                vis,
			"is_day":                    isDay,
		},
		"daily": map[string]any{
			"time":               dailyTime,
			"weather_code":       dcodes,
			"temperature_2m_max": maxT,
			"temperature_2m_min": minT,
			"precipitation_sum":  precip,
			"sunrise":            sunrise,
			"sunset":             sunset,
			"daylight_duration":  daylight,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return string(b)
}
