package alerter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Renderer formats an alert event as human-readable text.
type Renderer func(event model.AlertEvent) string

// DefaultRenderer renders events for the named fee, e.g. "fastest fee".
func DefaultRenderer(label string) Renderer {
	return func(e model.AlertEvent) string {
		var b strings.Builder
		if e.Side == model.StateBelow {
			fmt.Fprintf(&b, "⚠️ Bitcoin %s dropped to %d sat/vB (threshold %d sat/vB)", label, e.Metric, e.Threshold)
		} else {
			fmt.Fprintf(&b, "Bitcoin %s rose to %d sat/vB (threshold %d sat/vB)", label, e.Metric, e.Threshold)
		}

		if !e.Since.IsZero() && e.At.Sub(e.Since) >= time.Minute {
			spent := strings.TrimSpace(humanize.RelTime(e.Since, e.At, "", ""))
			fmt.Fprintf(&b, "; it had been %s the threshold for %s", sidePhrase(e.Previous), spent)
		}
		return b.String()
	}
}

func sidePhrase(s model.AlertState) string {
	if s == model.StateAbove {
		return "above"
	}
	return "at or below"
}
