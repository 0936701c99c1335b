package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushConfig names the Pushgateway target. An empty URL disables pushing.
type PushConfig struct {
	URL      string
	Job      string
	Location string
}

// FlushTelemetry flushes telemetry buffers before process exit.
// The job is too short-lived to be scraped, so metrics are pushed to the
// Pushgateway (when configured) and the logger is synced.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, cfg PushConfig) error {
	var pushErr error
	if cfg.URL != "" {
		pusher := push.New(cfg.URL, cfg.Job).Gatherer(registry)
		if cfg.Location != "" {
			pusher = pusher.Grouping("location", cfg.Location)
		}
		if err := pusher.PushContext(ctx); err != nil {
			pushErr = fmt.Errorf("push metrics: %w", err)
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil && pushErr == nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return pushErr
}
