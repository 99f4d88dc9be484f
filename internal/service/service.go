// Package service orchestrates the dashboard endpoints: explicit cache lookup,
// coalesced upstream fetch on miss, reshape, and cache store.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/geocode"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// GeocodeSearcher returns raw geocoding records for a query.
type GeocodeSearcher interface {
	Search(ctx context.Context, query string) ([]geocode.Record, error)
}

// ForecastFetcher returns a forecast payload in the unit system it reports.
type ForecastFetcher interface {
	Forecast(ctx context.Context, q models.WeatherQuery) (models.WeatherPayload, error)
	Units() models.Units
}

// ImageFetcher returns a random background photo for a query.
type ImageFetcher interface {
	Random(ctx context.Context, query string) (models.ImagePayload, error)
}

// TTLs holds the cache lifetime of each endpoint's responses.
type TTLs struct {
	Geocode time.Duration
	Weather time.Duration
	Image   time.Duration
}

const defaultCoalesceTimeout = 15 * time.Second

// DashboardService serves the dashboard endpoints using a cache-aside pattern.
// Values cached and returned are the encoded response bodies, so repeated
// requests within a TTL get byte-identical responses.
type DashboardService struct {
	geocoder  GeocodeSearcher
	forecast  ForecastFetcher
	images    ImageFetcher
	cache     cache.Cache
	ttl       TTLs
	coalescer *requestCoalescer
	now       func() time.Time
}

// NewDashboardService creates a DashboardService. coalesceTimeout bounds a
// shared upstream fetch; zero uses 15s.
func NewDashboardService(geocoder GeocodeSearcher, forecast ForecastFetcher, images ImageFetcher, c cache.Cache, ttl TTLs, coalesceTimeout time.Duration) *DashboardService {
	if coalesceTimeout <= 0 {
		coalesceTimeout = defaultCoalesceTimeout
	}
	return &DashboardService{
		geocoder:  geocoder,
		forecast:  forecast,
		images:    images,
		cache:     c,
		ttl:       ttl,
		coalescer: newRequestCoalescer(coalesceTimeout),
		now:       time.Now,
	}
}

// Geocode returns the encoded GeocodeResponse for a validated query. Zero
// matches produce an empty result list, not an error.
func (s *DashboardService) Geocode(ctx context.Context, query string) ([]byte, error) {
	return s.cached(ctx, cache.EndpointGeocode, cache.GeocodeKey(query), s.ttl.Geocode, func(ctx context.Context) ([]byte, error) {
		records, err := s.geocoder.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		results := geocode.NormalizeAll(records, observability.LoggerFromContext(ctx))
		return json.Marshal(models.GeocodeResponse{Results: results})
	})
}

// Weather returns the forecast payload for a validated query.
func (s *DashboardService) Weather(ctx context.Context, q models.WeatherQuery) (models.WeatherPayload, error) {
	body, err := s.cached(ctx, cache.EndpointWeather, cache.WeatherKey(q), s.ttl.Weather, func(ctx context.Context) ([]byte, error) {
		return s.forecast.Forecast(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return models.WeatherPayload(body), nil
}

// Summary builds a ForecastSummary from the (cached) forecast payload.
func (s *DashboardService) Summary(ctx context.Context, q models.SummaryQuery) (models.ForecastSummary, error) {
	payload, err := s.Weather(ctx, q.WeatherQuery)
	if err != nil {
		return models.ForecastSummary{}, err
	}

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("unknown timezone for summary, using UTC",
			zap.String("timezone", q.Timezone), zap.Error(err))
		loc = time.UTC
	}
	to := q.Units
	if to == "" {
		to = s.forecast.Units()
	}
	return BuildSummary(payload, s.forecast.Units(), to, loc, s.now(), q.Hours)
}

// Image returns the provider's photo metadata for a validated query.
func (s *DashboardService) Image(ctx context.Context, query string) (models.ImagePayload, error) {
	body, err := s.cached(ctx, cache.EndpointImage, cache.ImageKey(query), s.ttl.Image, func(ctx context.Context) ([]byte, error) {
		return s.images.Random(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return models.ImagePayload(body), nil
}

// ClearCache drops every cached response.
func (s *DashboardService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("clear").Inc()
		return fmt.Errorf("clear cache: %w", err)
	}
	observability.CacheClearsTotal.Inc()
	observability.LoggerFromContext(ctx).Info("cache cleared")
	return nil
}

// cached serves key from the cache, or runs fetch once for all concurrent
// callers and stores its result. Cache backend errors degrade to a miss.
func (s *DashboardService) cached(ctx context.Context, endpoint, key string, ttl time.Duration, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues(endpoint).Inc()
		logger.Debug("cache hit", zap.String("key", key), zap.Duration("duration", time.Since(start)))
		return body, nil
	}
	observability.CacheMissesTotal.WithLabelValues(endpoint).Inc()

	logger.Debug("cache miss, fetching upstream", zap.String("key", key))
	res, err := s.coalescer.Do(ctx, key, func(fetchCtx context.Context) ([]byte, error) {
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if setErr := s.cache.Set(fetchCtx, key, v, ttl); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
		return v, nil
	})
	if res.waiters > 1 {
		observability.CacheStampedeConcurrency.WithLabelValues(endpoint).Observe(float64(res.waiters))
	}
	if res.shared {
		observability.RequestCoalescedTotal.WithLabelValues(endpoint).Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	logger.Debug("served from upstream", zap.String("key", key), zap.Duration("duration", time.Since(start)))
	return res.val, nil
}
