package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Source is the metric collaborator polled by the alerter.
type Source interface {
	Fetch(ctx context.Context) (model.Metric, error)
}

// Direction selects which crossings are delivered.
type Direction string

const (
	DirectionBoth Direction = "both" // Notify on every crossing
	DirectionDown Direction = "down" // Notify only when the fee drops to or below the threshold
	DirectionUp   Direction = "up"   // Notify only when the fee rises above the threshold
)

// ParseDirection validates a direction name. An empty name means both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", DirectionBoth:
		return DirectionBoth, nil
	case DirectionDown, DirectionUp:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown alert direction %q", s)
}

// Allows reports whether a crossing onto side should be delivered.
func (d Direction) Allows(side model.AlertState) bool {
	switch d {
	case DirectionDown:
		return side == model.StateBelow
	case DirectionUp:
		return side == model.StateAbove
	default:
		return true
	}
}

// Alerter turns a stream of fee samples into one alert per threshold
// crossing. Alert state is owned by the goroutine running Run; other
// goroutines read it only through Status.
type Alerter struct {
	threshold    uint64
	pollInterval time.Duration
	fetchOnStart bool
	direction    Direction
	sourceName   string
	field        string
	label        string

	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	render   Renderer

	state     model.AlertState
	enteredAt time.Time

	running atomic.Bool
	stats   model.Status
	status  atomic.Pointer[model.Status]
}

// Option configures an Alerter.
type Option func(*Alerter)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Alerter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Alerter) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Alerter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRenderer replaces the alert text formatter.
func WithRenderer(r Renderer) Option {
	return func(a *Alerter) {
		if r != nil {
			a.render = r
		}
	}
}

// WithLabel names the metric in rendered alert text, e.g. "fastest fee".
// It has no effect when WithRenderer is also given.
func WithLabel(label string) Option {
	return func(a *Alerter) { a.label = label }
}

// WithFetchOnStart runs the first tick immediately instead of after one interval.
func WithFetchOnStart(v bool) Option {
	return func(a *Alerter) { a.fetchOnStart = v }
}

// WithDirection restricts delivered alerts to one crossing direction.
func WithDirection(d Direction) Option {
	return func(a *Alerter) {
		if d != "" {
			a.direction = d
		}
	}
}

// WithSource labels alerts with the source name and fee field.
func WithSource(name, field string) Option {
	return func(a *Alerter) {
		a.sourceName = name
		a.field = field
	}
}

// New creates an alerter. threshold and pollInterval are validated by the
// caller's configuration layer.
func New(threshold uint64, pollInterval time.Duration, opts ...Option) *Alerter {
	a := &Alerter{
		threshold:    threshold,
		pollInterval: pollInterval,
		direction:    DirectionBoth,
		logger:       slog.Default(),
		recorder:     nopRecorder{},
		now:          time.Now,
		label:        "fee",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.render == nil {
		a.render = DefaultRenderer(a.label)
	}
	a.stats = model.Status{
		Threshold:    threshold,
		PollInterval: pollInterval.String(),
	}
	a.publish()
	return a
}

// Threshold returns the configured threshold.
func (a *Alerter) Threshold() uint64 { return a.threshold }

// Observe feeds one successful sample into the state machine. It returns an
// event only when the sample lands on the opposite side of the threshold
// from the previous sample. The first sample only sets the state.
func (a *Alerter) Observe(metric model.Metric) (model.AlertEvent, bool) {
	side := model.SideOf(metric, a.threshold)
	now := a.now()

	if a.state == model.StateUnset {
		a.state = side
		a.enteredAt = now
		a.recorder.StateChanged(side)
		return model.AlertEvent{}, false
	}
	if side == a.state {
		return model.AlertEvent{}, false
	}

	event := model.AlertEvent{
		ID:        uuid.NewString(),
		Side:      side,
		Previous:  a.state,
		Metric:    metric,
		Threshold: a.threshold,
		At:        now,
		Since:     a.enteredAt,
	}
	a.state = side
	a.enteredAt = now
	a.recorder.StateChanged(side)
	return event, true
}

// State returns the current alert state. It must only be called from the
// goroutine that drives Observe; other goroutines use Status.
func (a *Alerter) State() model.AlertState { return a.state }

// Render formats an event with the configured renderer.
func (a *Alerter) Render(event model.AlertEvent) string { return a.render(event) }

// Status returns the snapshot published after the most recent tick.
func (a *Alerter) Status() model.Status {
	return *a.status.Load()
}

func (a *Alerter) publish() {
	s := a.stats
	s.State = a.state
	a.status.Store(&s)
}
