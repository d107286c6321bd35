package alerts

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to a logger instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a dry-run notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(ctx context.Context, alert Alert) error {
	l.logger.InfoContext(ctx, "fee alert",
		"id", alert.ID,
		"level", alert.Level,
		"side", alert.Side,
		"metric", alert.Metric,
		"threshold", alert.Threshold,
		"message", alert.Message,
	)
	return nil
}
