package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry logs a final tally of the request counters and syncs the
// logger. Prometheus is scraped, so the logger is the only buffered sink.
// Call after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	families, err := registry.Gather()
	if err != nil {
		logger.Warn("gather final metrics", zap.Error(err))
	} else {
		totals := make(map[string]float64, len(families))
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				totals[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
		logger.Info("final request tally",
			zap.Float64("http_requests", totals["httpRequestsTotal"]),
			zap.Float64("upstream_calls", totals["upstreamCallsTotal"]),
			zap.Float64("cache_hits", totals["cacheHitsTotal"]),
			zap.Float64("rate_limited", totals["rateLimitDeniedTotal"]),
		)
	}

	if err := logger.Sync(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}
