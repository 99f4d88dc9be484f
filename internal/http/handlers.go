package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// HealthConfig holds the inputs of the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability. Used for
	// the memcached and redis backends. A failed ping is reported under
	// checks but does not change status, since cache errors degrade to misses.
	CachePing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service      *service.DashboardService
	healthConfig *HealthConfig
	logger       *zap.Logger
	errors       errorWriter

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. production withholds error details from
// responses.
func NewHandler(svc *service.DashboardService, healthConfig *HealthConfig, logger *zap.Logger, production bool) *Handler {
	if healthConfig == nil {
		healthConfig = &HealthConfig{StartTime: time.Now()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:      svc,
		healthConfig: healthConfig,
		logger:       logger,
		errors:       errorWriter{production: production},
	}
}

// GetGeocode handles GET /api/geocode?query=.
func (h *Handler) GetGeocode(w http.ResponseWriter, r *http.Request) {
	query, err := validation.Query(r.URL.Query().Get("query"))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	body, err := h.service.Geocode(r.Context(), query)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// GetWeather handles GET /api/weather?latitude=&longitude=&timezone=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := validation.Weather(params.Get("latitude"), params.Get("longitude"), params.Get("timezone"))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	payload, err := h.service.Weather(r.Context(), q)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// GetWeatherSummary handles GET /api/weather/summary. It accepts the weather
// parameters plus optional units and hours.
func (h *Handler) GetWeatherSummary(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := validation.Summary(
		params.Get("latitude"),
		params.Get("longitude"),
		params.Get("timezone"),
		params.Get("units"),
		params.Get("hours"),
	)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), q)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetImage handles GET /api/unsplash?query=.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	query, err := validation.Query(r.URL.Query().Get("query"))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	payload, err := h.service.Image(r.Context(), query)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// PostCacheClear handles POST /api/cache/clear.
func (h *Handler) PostCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared"})
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetHealth handles GET /api/health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if lifecycle.IsShuttingDown() {
		status, code = "shutting-down", http.StatusServiceUnavailable
	}

	h.healthStatusMu.Lock()
	if prev := h.healthStatusPrev; prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	resp := healthResponse{
		Status: status,
		Uptime: time.Since(h.healthConfig.StartTime).Seconds(),
	}
	if ping := h.healthConfig.CachePing; ping != nil {
		cacheStatus := "healthy"
		if err := ping(r.Context()); err != nil {
			cacheStatus = "unhealthy"
			h.logger.Warn("cache ping failed", zap.Error(err))
		}
		resp.Checks = map[string]string{"cache": cacheStatus}
	}
	writeJSON(w, code, resp)
}

// NotFound answers unmatched routes with the error envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.errors.write(w, r, routeError(errRouteNotFound, r))
}

// MethodNotAllowed answers a known path requested with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.errors.write(w, r, routeError(errMethodNotAllowed, r))
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already-encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
