package feesource_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/fee-guardian/pkg/feesource"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

func newMempoolServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fees/recommended", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMempool_Name(t *testing.T) {
	assert.Equal(t, "mempool", feesource.NewMempool(feesource.Options{}).Name())
}

func TestMempool_Fetch(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":12,"halfHourFee":9,"hourFee":7,"economyFee":3,"minimumFee":1}`, http.StatusOK)

	tests := []struct {
		field    model.FeeField
		expected model.Metric
	}{
		{model.FieldFastest, 12},
		{model.FieldHalfHour, 9},
		{model.FieldHour, 7},
		{model.FieldEconomy, 3},
		{model.FieldMinimum, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			src := feesource.NewMempool(feesource.Options{BaseURL: server.URL + "/", Field: tt.field})
			got, err := src.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMempool_Fetch_DefaultsToFastest(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":4,"halfHourFee":3,"hourFee":2,"economyFee":1,"minimumFee":1}`, http.StatusOK)

	got, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Metric(4), got)
}

func TestMempool_Fetch_RoundsUpFractionalRates(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":1.2,"halfHourFee":1,"hourFee":1,"economyFee":1,"minimumFee":1}`, http.StatusOK)

	got, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Metric(2), got)
}

func TestMempool_Fetch_StatusError(t *testing.T) {
	server := newMempoolServer(t, `oops`, http.StatusBadGateway)

	_, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrNetwork))
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, "network", feesource.KindOf(err))
}

func TestMempool_Fetch_DecodeError(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":`, http.StatusOK)

	_, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrDecode))
	assert.False(t, errors.Is(err, feesource.ErrNetwork))
}

func TestMempool_Fetch_NegativeRate(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":-1,"halfHourFee":1,"hourFee":1,"economyFee":1,"minimumFee":1}`, http.StatusOK)

	_, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrDecode))
}

func TestMempool_Fetch_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"null", `null`},
		{"error object", `{"message":"rate limited"}`},
		{"partial", `{"fastestFee":12,"halfHourFee":9,"hourFee":7,"economyFee":3}`},
		{"null field", `{"fastestFee":null,"halfHourFee":9,"hourFee":7,"economyFee":3,"minimumFee":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMempoolServer(t, tt.body, http.StatusOK)

			got, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
			require.Error(t, err)
			assert.Zero(t, got)
			assert.True(t, errors.Is(err, feesource.ErrDecode))
			assert.Equal(t, "decode", feesource.KindOf(err))
		})
	}
}

func TestMempool_Fetch_OutOfRangeRate(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":1e30,"halfHourFee":1,"hourFee":1,"economyFee":1,"minimumFee":1}`, http.StatusOK)

	_, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrDecode))
	assert.Contains(t, err.Error(), "out of range")
}

func TestMempool_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	src := feesource.NewMempool(feesource.Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrTimeout))
	assert.Equal(t, "timeout", feesource.KindOf(err))
}

func TestMempool_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := feesource.NewMempool(feesource.Options{BaseURL: url}).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feesource.ErrNetwork))

	var fe *feesource.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "mempool", fe.Source)
}

func TestMempool_Estimates(t *testing.T) {
	server := newMempoolServer(t, `{"fastestFee":12,"halfHourFee":9,"hourFee":7,"economyFee":3,"minimumFee":1}`, http.StatusOK)

	est, err := feesource.NewMempool(feesource.Options{BaseURL: server.URL}).Estimates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FeeEstimates{Fastest: 12, HalfHour: 9, Hour: 7, Economy: 3, Minimum: 1}, est)
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", feesource.KindOf(errors.New("boom")))
}
