package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

var (
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errRateLimited      = errors.New("rate limit exceeded")
	errUnauthorized     = errors.New("unauthorized")
	errPanic            = errors.New("panic recovered")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// errorWriter normalizes failures into errorResponse. In production, details
// are withheld for everything except validation failures.
type errorWriter struct {
	production bool
}

// classify selects the status code and public message for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		return http.StatusBadRequest, "Invalid request parameters"
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, "Method not allowed"
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound, "No results found"
	case errors.Is(err, errRateLimited), errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, client.ErrCircuitOpen):
		return http.StatusInternalServerError, "Upstream provider unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, "Upstream request timed out"
	case errors.Is(err, client.ErrUpstreamFailure), errors.Is(err, client.ErrInvalidAPIKey):
		return http.StatusInternalServerError, "Upstream provider error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (ew errorWriter) details(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Details()
	}
	if ew.production {
		return ""
	}
	return err.Error()
}

// write logs err with the request logger and sends the envelope.
func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	logger := observability.LoggerFromContext(r.Context())
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		fields = append(fields, zap.String("error_category", string(client.CategorizeError(err))))
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}

	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: ew.details(err),
	})
}

func routeError(sentinel error, r *http.Request) error {
	return fmt.Errorf("%w: %s %s", sentinel, r.Method, r.URL.Path)
}
