package alerts

import (
	"context"
	"time"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// AlertLevel indicates the severity of a fee alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"    // Fee dropped to or below the threshold
	AlertWarning AlertLevel = "warning" // Fee rose above the threshold
)

// LevelFor maps a crossing direction to an alert level.
func LevelFor(side model.AlertState) AlertLevel {
	if side == model.StateAbove {
		return AlertWarning
	}
	return AlertInfo
}

// Alert represents a fee threshold crossing notification.
type Alert struct {
	ID        string           `json:"id"`
	Level     AlertLevel       `json:"level"`
	Side      model.AlertState `json:"side"`
	Metric    model.Metric     `json:"metric"`
	Threshold uint64           `json:"threshold"`
	Source    string           `json:"source,omitempty"`
	Field     string           `json:"field,omitempty"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. It does not retry.
	Send(ctx context.Context, alert Alert) error
}
