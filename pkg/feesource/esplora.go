package feesource

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// DefaultEsploraURL is Blockstream's public Esplora API.
const DefaultEsploraURL = "https://blockstream.info/api"

// esploraTargets maps each fee field to a confirmation target in blocks.
var esploraTargets = map[model.FeeField]string{
	model.FieldFastest:  "1",
	model.FieldHalfHour: "3",
	model.FieldHour:     "6",
	model.FieldEconomy:  "144",
	model.FieldMinimum:  "1008",
}

// Esplora reads fee estimates from an Esplora compatible API.
type Esplora struct {
	baseURL string
	field   model.FeeField
	client  *http.Client
}

// NewEsplora creates an Esplora source.
func NewEsplora(opts Options) *Esplora {
	base := opts.BaseURL
	if base == "" {
		base = DefaultEsploraURL
	}
	field := opts.Field
	if field == "" {
		field = model.FieldFastest
	}
	return &Esplora{
		baseURL: strings.TrimSuffix(base, "/"),
		field:   field,
		client:  newHTTPClient(opts.Timeout),
	}
}

func (e *Esplora) Name() string { return "esplora" }

func (e *Esplora) Fetch(ctx context.Context) (model.Metric, error) {
	target, ok := esploraTargets[e.field]
	if !ok {
		return 0, &FetchError{Kind: KindDecode, Source: e.Name(), Err: fmt.Errorf("unknown field %q", e.field)}
	}
	raw, err := e.fetchRaw(ctx)
	if err != nil {
		return 0, err
	}
	return e.pick(raw, target)
}

func (e *Esplora) Estimates(ctx context.Context) (model.FeeEstimates, error) {
	raw, err := e.fetchRaw(ctx)
	if err != nil {
		return model.FeeEstimates{}, err
	}

	var est model.FeeEstimates
	dst := map[model.FeeField]*model.Metric{
		model.FieldFastest:  &est.Fastest,
		model.FieldHalfHour: &est.HalfHour,
		model.FieldHour:     &est.Hour,
		model.FieldEconomy:  &est.Economy,
		model.FieldMinimum:  &est.Minimum,
	}
	for field, ptr := range dst {
		v, err := e.pick(raw, esploraTargets[field])
		if err != nil {
			return model.FeeEstimates{}, err
		}
		*ptr = v
	}
	return est, nil
}

func (e *Esplora) fetchRaw(ctx context.Context) (map[string]*float64, error) {
	var raw map[string]*float64
	if err := getJSON(ctx, e.client, e.Name(), e.baseURL+"/fee-estimates", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (e *Esplora) pick(raw map[string]*float64, target string) (model.Metric, error) {
	v := raw[target]
	if v == nil {
		return 0, &FetchError{Kind: KindDecode, Source: e.Name(), Err: fmt.Errorf("no estimate for %s-block target", target)}
	}
	m, err := toMetric(*v)
	if err != nil {
		return 0, &FetchError{Kind: KindDecode, Source: e.Name(), Err: err}
	}
	return m, nil
}
