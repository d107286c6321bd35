package alerter

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/fee-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/fee-guardian/pkg/feesource"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// ErrAlreadyRunning is returned when Run is entered twice on one Alerter.
var ErrAlreadyRunning = errors.New("alerter is already running")

// Run polls source every poll interval until ctx is cancelled. Fetch and
// delivery failures are logged and never stop the loop. It returns nil on
// shutdown.
func (a *Alerter) Run(ctx context.Context, source Source, notifier alerts.Notifier) error {
	if source == nil {
		return errors.New("metric source is required")
	}
	if notifier == nil {
		notifier = alerts.NewLogNotifier(a.logger)
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	a.logger.Info("alerter started",
		"threshold", a.threshold,
		"poll_interval", a.pollInterval,
		"notifier", notifier.Name(),
		"direction", a.direction,
	)

	if a.fetchOnStart {
		a.tick(ctx, source, notifier)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("alerter stopping", "state", a.state)
			return nil
		case <-ticker.C:
			a.tick(ctx, source, notifier)
		}
	}
}

// tick runs one fetch, evaluate, notify sequence.
func (a *Alerter) tick(ctx context.Context, source Source, notifier alerts.Notifier) {
	start := time.Now()
	metric, err := source.Fetch(ctx)
	took := time.Since(start)

	// Shutdown during the fetch abandons the tick without touching state.
	if ctx.Err() != nil {
		a.logger.Debug("tick abandoned on shutdown")
		return
	}

	a.stats.Ticks++
	if err != nil {
		kind := feesource.KindOf(err)
		a.stats.FetchFailures++
		a.stats.LastError = err.Error()
		a.recorder.FetchFailed(kind, took)
		a.logger.Warn("fetch fee failed", "kind", kind, "error", err)
		a.publish()
		return
	}

	a.stats.LastMetric = metric
	a.stats.HasMetric = true
	a.stats.LastFetchAt = a.now()
	a.stats.LastError = ""
	a.recorder.FetchSucceeded(metric, took)
	a.logger.Debug("fee fetched", "metric", metric, "threshold", a.threshold, "state", a.state)

	if event, ok := a.Observe(metric); ok {
		a.deliver(ctx, notifier, event)
	}
	a.publish()
}

// deliver sends an event once. A failed send does not roll the state back.
func (a *Alerter) deliver(ctx context.Context, notifier alerts.Notifier, event model.AlertEvent) {
	if !a.direction.Allows(event.Side) {
		a.logger.Debug("crossing not delivered for direction",
			"side", event.Side,
			"metric", event.Metric,
			"direction", a.direction,
		)
		return
	}

	alert := alerts.Alert{
		ID:        event.ID,
		Level:     alerts.LevelFor(event.Side),
		Side:      event.Side,
		Metric:    event.Metric,
		Threshold: event.Threshold,
		Source:    a.sourceName,
		Field:     a.field,
		Message:   a.render(event),
		At:        event.At,
	}

	a.stats.Alerts++
	a.stats.LastAlertAt = event.At
	a.logger.Info("fee threshold crossed",
		"id", event.ID,
		"side", event.Side,
		"previous", event.Previous,
		"metric", event.Metric,
		"threshold", event.Threshold,
	)

	err := notifier.Send(ctx, alert)
	a.recorder.AlertDelivered(event.Side, err)
	if err != nil {
		a.stats.DeliveryFailures++
		a.logger.Error("send alert failed",
			"notifier", notifier.Name(),
			"id", event.ID,
			"error", err,
		)
	}
}

// Handle supervises an alerter started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs the alerter in its own goroutine.
func (a *Alerter) Start(ctx context.Context, source Source, notifier alerts.Notifier) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.err = a.Run(ctx, source, notifier)
	}()
	return h
}

// Stop requests shutdown. It does not wait.
func (h *Handle) Stop() { h.cancel() }

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the loop exits and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
