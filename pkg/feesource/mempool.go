package feesource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// DefaultMempoolURL is the public mempool.space instance.
const DefaultMempoolURL = "https://mempool.space"

// Mempool reads recommended fees from a mempool.space compatible API.
type Mempool struct {
	baseURL string
	field   model.FeeField
	client  *http.Client
}

// NewMempool creates a mempool.space source.
func NewMempool(opts Options) *Mempool {
	base := opts.BaseURL
	if base == "" {
		base = DefaultMempoolURL
	}
	field := opts.Field
	if field == "" {
		field = model.FieldFastest
	}
	return &Mempool{
		baseURL: strings.TrimSuffix(base, "/"),
		field:   field,
		client:  newHTTPClient(opts.Timeout),
	}
}

func (m *Mempool) Name() string { return "mempool" }

func (m *Mempool) Fetch(ctx context.Context) (model.Metric, error) {
	est, err := m.Estimates(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := est.Pick(m.field)
	if !ok {
		return 0, &FetchError{Kind: KindDecode, Source: m.Name(), Err: fmt.Errorf("unknown field %q", m.field)}
	}
	return v, nil
}

func (m *Mempool) Estimates(ctx context.Context) (model.FeeEstimates, error) {
	var resp *mempoolFees
	if err := getJSON(ctx, m.client, m.Name(), m.baseURL+"/api/v1/fees/recommended", &resp); err != nil {
		return model.FeeEstimates{}, err
	}
	if resp == nil {
		return model.FeeEstimates{}, &FetchError{Kind: KindDecode, Source: m.Name(), Err: errors.New("empty response body")}
	}

	values := []*float64{resp.FastestFee, resp.HalfHourFee, resp.HourFee, resp.EconomyFee, resp.MinimumFee}
	metrics := make([]model.Metric, len(values))
	for i, v := range values {
		if v == nil {
			return model.FeeEstimates{}, &FetchError{Kind: KindDecode, Source: m.Name(), Err: fmt.Errorf("%s: missing from response", model.Fields[i])}
		}
		metric, err := toMetric(*v)
		if err != nil {
			return model.FeeEstimates{}, &FetchError{Kind: KindDecode, Source: m.Name(), Err: fmt.Errorf("%s: %w", model.Fields[i], err)}
		}
		metrics[i] = metric
	}

	return model.FeeEstimates{
		Fastest:  metrics[0],
		HalfHour: metrics[1],
		Hour:     metrics[2],
		Economy:  metrics[3],
		Minimum:  metrics[4],
	}, nil
}

type mempoolFees struct {
	FastestFee  *float64 `json:"fastestFee"`
	HalfHourFee *float64 `json:"halfHourFee"`
	HourFee     *float64 `json:"hourFee"`
	EconomyFee  *float64 `json:"economyFee"`
	MinimumFee  *float64 `json:"minimumFee"`
}

// toMetric rounds a fee rate up to whole sat/vB.
func toMetric(v float64) (model.Metric, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid fee rate %v", v)
	}
	// float64(math.MaxUint64) rounds up to 2^64, which does not fit.
	if v >= math.MaxUint64 {
		return 0, fmt.Errorf("fee rate %v out of range", v)
	}
	return model.Metric(math.Ceil(v)), nil
}
