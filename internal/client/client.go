// Package client calls the three upstream providers (geocoding, forecast,
// imagery). Calls are guarded by a per-provider circuit breaker and optional
// outbound throttle, and are never retried.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrNotFound        = errors.New("not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrCircuitOpen     = errors.New("circuit open")
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20

	correlationHeader = "X-Correlation-ID"
)

// ProviderError is a failed upstream call. Err is one of the package
// sentinels; Cause holds the transport error, if any.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
	Cause      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Options configures the transport shared by every provider client.
type Options struct {
	// Timeout bounds each outbound request. Zero uses 10s.
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Breaker guards the provider. Nil disables circuit breaking.
	Breaker *circuitbreaker.CircuitBreaker
	// Throttle caps the outbound request rate. Nil disables throttling.
	Throttle *rate.Limiter
	Logger   *zap.Logger
}

// IsBreakerFailure reports whether err says something about provider health.
// Caller mistakes (not found, bad key) and rate limiting do not trip the circuit.
func IsBreakerFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrInvalidAPIKey) &&
		!errors.Is(err, ErrRateLimited)
}

// messageFunc extracts the provider's error message from a response body.
type messageFunc func(body []byte) string

type upstream struct {
	provider string
	http     *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	throttle *rate.Limiter
	logger   *zap.Logger
	message  messageFunc
}

func newUpstream(provider string, opts Options, message messageFunc) upstream {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return upstream{
		provider: provider,
		http:     hc,
		breaker:  opts.Breaker,
		throttle: opts.Throttle,
		logger:   logger.With(zap.String("provider", provider)),
		message:  message,
	}
}

// get performs one GET and returns the 2xx body.
func (u *upstream) get(ctx context.Context, req *http.Request) ([]byte, error) {
	start := time.Now()
	body, err := u.guarded(ctx, req)

	status := "success"
	if err != nil {
		status = string(CategorizeError(err))
	}
	observability.UpstreamCallsTotal.WithLabelValues(u.provider, status).Inc()
	observability.UpstreamDuration.WithLabelValues(u.provider, status).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.LoggerFromContext(ctx).Warn("upstream call failed",
			zap.String("provider", u.provider),
			zap.String("error_category", status),
			zap.Error(err),
		)
	}
	return body, err
}

func (u *upstream) guarded(ctx context.Context, req *http.Request) ([]byte, error) {
	if u.throttle != nil && !u.throttle.Allow() {
		return nil, &ProviderError{Provider: u.provider, Err: ErrRateLimited, Message: "outbound request budget exhausted"}
	}
	if u.breaker == nil {
		return u.do(ctx, req)
	}

	var body []byte
	err := u.breaker.Call(ctx, func() error {
		var err error
		body, err = u.do(ctx, req)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, &ProviderError{Provider: u.provider, Err: ErrCircuitOpen, Message: "provider temporarily unavailable"}
	}
	return body, err
}

func (u *upstream) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(correlationHeader, id)
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: u.provider, Err: ErrUpstreamFailure, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ProviderError{Provider: u.provider, StatusCode: resp.StatusCode, Err: ErrUpstreamFailure, Message: "read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, u.statusError(resp.StatusCode, body)
	}
	return body, nil
}

func (u *upstream) statusError(code int, body []byte) error {
	msg := ""
	if u.message != nil {
		msg = u.message(body)
	}
	var sentinel error
	switch {
	case code == http.StatusForbidden && mentionsRateLimit(msg, body):
		sentinel = ErrRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ErrInvalidAPIKey
	case code == http.StatusNotFound:
		sentinel = ErrNotFound
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		sentinel = ErrRateLimited
	default:
		sentinel = ErrUpstreamFailure
	}
	return &ProviderError{Provider: u.provider, StatusCode: code, Message: msg, Err: sentinel}
}

// mentionsRateLimit checks the parsed message and the raw body, since some
// providers answer a 403 quota block with plain text.
func mentionsRateLimit(msg string, body []byte) bool {
	return strings.Contains(strings.ToLower(msg+" "+string(body)), "rate limit")
}
