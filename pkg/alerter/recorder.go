package alerter

import (
	"time"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Recorder receives loop instrumentation. Implementations must not block.
type Recorder interface {
	FetchSucceeded(metric model.Metric, took time.Duration)
	FetchFailed(kind string, took time.Duration)
	StateChanged(state model.AlertState)
	AlertDelivered(side model.AlertState, err error)
}

type nopRecorder struct{}

func (nopRecorder) FetchSucceeded(model.Metric, time.Duration) {}
func (nopRecorder) FetchFailed(string, time.Duration)         {}
func (nopRecorder) StateChanged(model.AlertState)              {}
func (nopRecorder) AlertDelivered(model.AlertState, error)     {}
