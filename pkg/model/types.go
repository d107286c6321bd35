package model

import "time"

// Metric is a sampled fee rate in sat/vB.
type Metric uint64

// AlertState is the side of the threshold the last processed metric fell on.
type AlertState int

const (
	StateUnset AlertState = iota // No sample processed yet
	StateBelow                   // metric <= threshold
	StateAbove                   // metric > threshold
)

func (s AlertState) String() string {
	switch s {
	case StateBelow:
		return "below"
	case StateAbove:
		return "above"
	default:
		return "unset"
	}
}

// MarshalText encodes the state by name.
func (s AlertState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name. Unknown names decode to StateUnset.
func (s *AlertState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "below":
		*s = StateBelow
	case "above":
		*s = StateAbove
	default:
		*s = StateUnset
	}
	return nil
}

// SideOf classifies a metric against a threshold. A metric equal to the
// threshold is below it.
func SideOf(metric Metric, threshold uint64) AlertState {
	if uint64(metric) <= threshold {
		return StateBelow
	}
	return StateAbove
}

// AlertEvent is emitted once per threshold crossing.
type AlertEvent struct {
	ID        string     `json:"id"`
	Side      AlertState `json:"side"`
	Previous  AlertState `json:"previous"`
	Metric    Metric     `json:"metric"`
	Threshold uint64     `json:"threshold"`
	At        time.Time  `json:"at"`
	Since     time.Time  `json:"since,omitempty"`
}

// Status is a point-in-time snapshot of the alerter.
type Status struct {
	State            AlertState `json:"state"`
	Threshold        uint64     `json:"threshold"`
	PollInterval     string     `json:"poll_interval"`
	LastMetric       Metric     `json:"last_metric"`
	HasMetric        bool       `json:"has_metric"`
	LastFetchAt      time.Time  `json:"last_fetch_at,omitempty"`
	LastAlertAt      time.Time  `json:"last_alert_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	Ticks            int64      `json:"ticks"`
	FetchFailures    int64      `json:"fetch_failures"`
	Alerts           int64      `json:"alerts"`
	DeliveryFailures int64      `json:"delivery_failures"`
}

// FeeEstimates holds the recommended fee rates reported by a source.
type FeeEstimates struct {
	Fastest  Metric `json:"fastest"`
	HalfHour Metric `json:"half_hour"`
	Hour     Metric `json:"hour"`
	Economy  Metric `json:"economy"`
	Minimum  Metric `json:"minimum"`
}

// FeeField names one of the FeeEstimates values.
type FeeField string

const (
	FieldFastest  FeeField = "fastest"
	FieldHalfHour FeeField = "half_hour"
	FieldHour     FeeField = "hour"
	FieldEconomy  FeeField = "economy"
	FieldMinimum  FeeField = "minimum"
)

// Fields lists every valid FeeField in display order.
var Fields = []FeeField{FieldFastest, FieldHalfHour, FieldHour, FieldEconomy, FieldMinimum}

// Valid reports whether f is a known field.
func (f FeeField) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the field.
func (f FeeField) Label() string {
	switch f {
	case FieldFastest:
		return "fastest fee"
	case FieldHalfHour:
		return "half-hour fee"
	case FieldHour:
		return "hour fee"
	case FieldEconomy:
		return "economy fee"
	case FieldMinimum:
		return "minimum fee"
	default:
		return string(f)
	}
}

// Pick returns the value of the given field.
func (e FeeEstimates) Pick(f FeeField) (Metric, bool) {
	switch f {
	case FieldFastest:
		return e.Fastest, true
	case FieldHalfHour:
		return e.HalfHour, true
	case FieldHour:
		return e.Hour, true
	case FieldEconomy:
		return e.Economy, true
	case FieldMinimum:
		return e.Minimum, true
	default:
		return 0, false
	}
}
