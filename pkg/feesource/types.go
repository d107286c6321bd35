package feesource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Source is a remote fee-rate endpoint.
type Source interface {
	// Name returns the source identifier (e.g., "mempool", "esplora").
	Name() string

	// Fetch returns the currently configured fee field.
	Fetch(ctx context.Context) (model.Metric, error)

	// Estimates returns every recommended fee the source reports.
	Estimates(ctx context.Context) (model.FeeEstimates, error)
}

// Options configures a source created through the Registry.
type Options struct {
	BaseURL string
	Field   model.FeeField
	Timeout time.Duration
}

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindDecode  ErrorKind = "decode"
	KindTimeout ErrorKind = "timeout"
)

// Sentinel errors matched by FetchError through errors.Is.
var (
	ErrNetwork = errors.New("fee source network error")
	ErrDecode  = errors.New("fee source decode error")
	ErrTimeout = errors.New("fee source timeout")
)

// FetchError is returned by Source.Fetch and Source.Estimates.
type FetchError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// KindOf returns the kind of a fetch error, or "unknown" for anything else.
func KindOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return "unknown"
}
