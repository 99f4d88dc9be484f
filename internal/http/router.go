package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/ratelimit"
)

// RouterConfig holds the cross-cutting settings of the API routes.
type RouterConfig struct {
	Logger         *zap.Logger
	Production     bool
	RequestTimeout time.Duration
	// Limiter is applied per client to every /api route except health.
	Limiter    ratelimit.Limiter
	KeyFunc    ratelimit.KeyFunc
	AdminToken string
}

// NewRouter wires the dashboard routes. Correlation IDs and panic recovery
// wrap the router itself so unmatched routes get them too.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)
	router.Use(MetricsMiddleware)

	router.HandleFunc("/api/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(RateLimitConfig{
		Limiter:    cfg.Limiter,
		KeyFunc:    cfg.KeyFunc,
		Production: cfg.Production,
	}))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/geocode", h.GetGeocode).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/weather/summary", h.GetWeatherSummary).Methods(http.MethodGet)
	api.HandleFunc("/unsplash", h.GetImage).Methods(http.MethodGet)
	api.Handle("/cache/clear", AdminAuthMiddleware(cfg.AdminToken, cfg.Production)(http.HandlerFunc(h.PostCacheClear))).
		Methods(http.MethodPost)

	return CorrelationIDMiddleware(logger)(RecoveryMiddleware(cfg.Production)(router))
}
