package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const openCageBody = `{
  "results": [
    {
      "formatted": "Berlin, Germany",
      "components": {"city": "Berlin", "state": "Berlin", "country": "Germany"},
      "geometry": {"lat": 52.5170365, "lng": 13.3888599},
      "annotations": {"flag": "🇩🇪", "timezone": {"name": "Europe/Berlin"}}
    }
  ],
  "status": {"code": 200, "message": "OK"},
  "total_results": 1
}`

func TestNewGeocodeClient_RequiresKey(t *testing.T) {
	_, err := NewGeocodeClient("", "https://api.opencagedata.com/geocode/v1/json", 0, Options{})
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("NewGeocodeClient() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestGeocodeClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Berlin" || q.Get("key") != "test-key" || q.Get("limit") != "10" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(openCageBody))
	}))
	defer srv.Close()

	c, err := NewGeocodeClient("test-key", srv.URL, 0, Options{})
	if err != nil {
		t.Fatalf("NewGeocodeClient() error = %v", err)
	}
	records, err := c.Search(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0]
	if r.Formatted != "Berlin, Germany" || r.Components.City != "Berlin" || r.Geometry.Lat != 52.5170365 {
		t.Errorf("record = %+v", r)
	}
	if r.Annotations == nil || r.Annotations.Timezone == nil || r.Annotations.Timezone.Name != "Europe/Berlin" {
		t.Errorf("annotations = %+v", r.Annotations)
	}
}

func TestGeocodeClient_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[],"status":{"code":200,"message":"OK"},"total_results":0}`))
	}))
	defer srv.Close()

	c, _ := NewGeocodeClient("test-key", srv.URL, 5, Options{})
	records, err := c.Search(context.Background(), "zzzzzz")
	if err != nil {
		t.Fatalf("Search() error = %v, want nil for zero matches", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %v, want empty non-nil slice", records)
	}
}

func TestGeocodeClient_InvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"results":[],"status":{"code":401,"message":"invalid API key"}}`))
	}))
	defer srv.Close()

	c, _ := NewGeocodeClient("bad-key", srv.URL, 0, Options{})
	_, err := c.Search(context.Background(), "Berlin")
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("Search() error = %v, want ErrInvalidAPIKey", err)
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "invalid API key" {
		t.Errorf("Message = %q, want provider status message", pe.Message)
	}
}

func TestGeocodeClient_PlainTextQuotaBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Rate Limit Exceeded"))
	}))
	defer srv.Close()

	c, _ := NewGeocodeClient("test-key", srv.URL, 0, Options{})
	_, err := c.Search(context.Background(), "Berlin")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Search() error = %v, want ErrRateLimited", err)
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		t.Error("plain-text quota block must not read as an invalid key")
	}
}

func TestGeocodeClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c, _ := NewGeocodeClient("test-key", srv.URL, 0, Options{})
	_, err := c.Search(context.Background(), "Berlin")
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("Search() error = %v, want ErrUpstreamFailure", err)
	}
	if CategorizeError(err) != ErrorCategoryParsing {
		t.Errorf("CategorizeError() = %q, want parsing", CategorizeError(err))
	}
}
