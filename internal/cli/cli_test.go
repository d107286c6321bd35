package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/fee-guardian/internal/config"
	"github.com/ogulcanaydogan/fee-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/fee-guardian/pkg/feesource"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Alerts.Driver = config.DriverLog
	cfg.Status.Listen = ""
	return cfg
}

type fixedSource struct {
	name string
	est  model.FeeEstimates
	err  error
}

func (f fixedSource) Name() string { return f.name }

func (f fixedSource) Fetch(ctx context.Context) (model.Metric, error) {
	return f.est.Fastest, f.err
}

func (f fixedSource) Estimates(context.Context) (model.FeeEstimates, error) {
	return f.est, f.err
}

func TestPrintCheck(t *testing.T) {
	src := fixedSource{name: "mempool", est: model.FeeEstimates{Fastest: 12, HalfHour: 8, Hour: 5, Economy: 2, Minimum: 1}}

	t.Run("above", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printCheck(context.Background(), &out, src, model.FieldFastest, 10))

		s := out.String()
		assert.Contains(t, s, "Fee estimates (mempool)")
		assert.Contains(t, s, "half_hour")
		assert.Contains(t, s, "<- watched")
		assert.Contains(t, s, "Threshold: 10 sat/vB")
		assert.Contains(t, s, "The fastest fee is above the threshold (12 > 10)")
	})

	t.Run("at threshold is below", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printCheck(context.Background(), &out, src, model.FieldEconomy, 2))
		assert.Contains(t, out.String(), "at or below the threshold (2 <= 2)")
	})

	t.Run("fetch error", func(t *testing.T) {
		failing := fixedSource{name: "mempool", err: &feesource.FetchError{Kind: feesource.KindTimeout, Source: "mempool", Err: errors.New("slow")}}
		err := printCheck(context.Background(), &bytes.Buffer{}, failing, model.FieldFastest, 2)
		assert.ErrorIs(t, err, feesource.ErrTimeout)
	})
}

func TestListSources(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fees/recommended", r.URL.Path)
		w.Write([]byte(`{"fastestFee":14,"halfHourFee":9,"hourFee":6,"economyFee":3,"minimumFee":1}`))
	}))
	defer ts.Close()

	registry := feesource.NewRegistry()
	require.NoError(t, registry.Register("mempool", func(opts feesource.Options) feesource.Source {
		return feesource.NewMempool(opts)
	}))

	cfg := testConfig(t)
	cfg.Source.BaseURL = ts.URL

	t.Run("plain", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listSources(context.Background(), &out, registry, cfg, false))
		assert.Contains(t, out.String(), "mempool *")
		assert.Contains(t, out.String(), ts.URL)
	})

	t.Run("probe", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listSources(context.Background(), &out, registry, cfg, true))
		assert.Contains(t, out.String(), "fastest fee")
		assert.Contains(t, out.String(), "14 sat/vB")
	})
}

func TestListSources_Defaults(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listSources(context.Background(), &out, feesource.DefaultRegistry(), testConfig(t), false))
	assert.Contains(t, out.String(), feesource.DefaultMempoolURL)
	assert.Contains(t, out.String(), feesource.DefaultEsploraURL)
}

func TestWriteConfig_MasksSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alerts.Discord.Token = "discord-bot-token-1234"
	cfg.Alerts.Webhook.Secret = "hmac-secret-value"

	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, cfg))

	s := out.String()
	assert.NotContains(t, s, "discord-bot-token-1234")
	assert.NotContains(t, s, "hmac-secret-value")
	assert.Contains(t, s, "****1234")
	assert.Contains(t, s, "poll_interval: 5m0s")
	assert.Contains(t, s, "driver: log")
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
	err    error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Send(_ context.Context, alert alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func TestSendTest(t *testing.T) {
	alert := testAlert(model.StateBelow, 2, 2, "mempool", "fastest")
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, alerts.AlertInfo, alert.Level)

	t.Run("delivered", func(t *testing.T) {
		n := &recordingNotifier{}
		var out bytes.Buffer
		require.NoError(t, sendTest(context.Background(), &out, n, alert))
		require.Len(t, n.alerts, 1)
		assert.Contains(t, out.String(), "Test alert sent")
		assert.Contains(t, out.String(), alert.ID)
	})

	t.Run("failed", func(t *testing.T) {
		n := &recordingNotifier{err: errors.New("401 unauthorized")}
		err := sendTest(context.Background(), &bytes.Buffer{}, n, alert)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "recording")
	})
}

func TestInitNotifier(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *config.Config)
		expected string
	}{
		{"discord bot", func(c *config.Config) {
			c.Alerts.Driver = config.DriverDiscord
			c.Alerts.Discord.Token = "t"
			c.Alerts.Discord.ChannelID = "1"
		}, "discord"},
		{"discord webhook", func(c *config.Config) {
			c.Alerts.Driver = config.DriverDiscord
			c.Alerts.Discord.WebhookURL = "https://discord.example/hook"
		}, "discord"},
		{"slack", func(c *config.Config) {
			c.Alerts.Driver = config.DriverSlack
			c.Alerts.Slack.WebhookURL = "https://hooks.slack.example/x"
		}, "slack"},
		{"webhook", func(c *config.Config) {
			c.Alerts.Driver = config.DriverWebhook
			c.Alerts.Webhook.URL = "https://example.com/hook"
		}, "webhook"},
		{"kafka", func(c *config.Config) { c.Alerts.Driver = config.DriverKafka }, "kafka"},
		{"log", func(c *config.Config) { c.Alerts.Driver = config.DriverLog }, "log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			n, err := initNotifier(cfg, quietLogger())
			require.NoError(t, err)
			defer closeNotifier(n, quietLogger())
			assert.Equal(t, tt.expected, n.Name())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Alerts.Driver = "pigeon"
		_, err := initNotifier(cfg, quietLogger())
		assert.Error(t, err)
	})
}

func TestInitSource(t *testing.T) {
	cfg := testConfig(t)
	src, err := initSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mempool", src.Name())

	cfg.Source.Name = "esplora"
	src, err = initSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "esplora", src.Name())

	cfg.Source.Name = "electrum"
	_, err = initSource(cfg)
	assert.Error(t, err)
}

func TestNewLogger_File(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.File = filepath.Join(t.TempDir(), "fg.log")
	cfg.Logging.Format = "text"

	logger, closer := newLogger(cfg)
	logger.Info("fee fetched", "metric", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fee fetched")
	assert.Contains(t, string(data), "metric=3")
}

// cyclingSource returns metrics in order and cancels the run after the last.
type cyclingSource struct {
	mu      sync.Mutex
	metrics []model.Metric
	next    int
	cancel  context.CancelFunc
}

func (c *cyclingSource) Fetch(ctx context.Context) (model.Metric, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.metrics) {
		c.cancel()
		return 0, ctx.Err()
	}
	m := c.metrics[c.next]
	c.next++
	return m, nil
}

func TestWatch_DeliversCrossings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Threshold = 5
	cfg.PollInterval = time.Millisecond
	cfg.FetchOnStart = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src := &cyclingSource{metrics: []model.Metric{10, 3, 3, 6}, cancel: cancel}
	n := &recordingNotifier{}

	require.NoError(t, watch(ctx, cfg, quietLogger(), src, n))

	require.Len(t, n.alerts, 2)
	assert.Equal(t, model.StateBelow, n.alerts[0].Side)
	assert.Equal(t, "mempool", n.alerts[0].Source)
	assert.Equal(t, "fastest", n.alerts[0].Field)
	assert.Contains(t, n.alerts[0].Message, "fastest fee dropped to 3")
	assert.Equal(t, model.StateAbove, n.alerts[1].Side)
}

func TestWatch_DirectionDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Threshold = 5
	cfg.PollInterval = time.Millisecond
	cfg.Alerts.Direction = "down"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src := &cyclingSource{metrics: []model.Metric{10, 3, 6, 2}, cancel: cancel}
	n := &recordingNotifier{}

	require.NoError(t, watch(ctx, cfg, quietLogger(), src, n))

	require.Len(t, n.alerts, 2)
	assert.Equal(t, model.StateBelow, n.alerts[0].Side)
	assert.Equal(t, model.StateBelow, n.alerts[1].Side)
}

func TestWatch_StatusServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.PollInterval = time.Hour
	cfg.Status.Listen = ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src := &cyclingSource{cancel: cancel}
	err = watch(ctx, cfg, quietLogger(), src, &recordingNotifier{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status server")
	assert.NoError(t, ctx.Err(), "watch should fail on its own, not by timeout")
}

func TestRootCmd_Version(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "fg version dev\n", out.String())
}

func TestDaemon_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: -1\nalerts:\n  driver: log\n"), 0o644))

	err := Daemon(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestDaemon_RunsUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "poll_interval: 1h\nalerts:\n  driver: log\nstatus:\n  listen: \"\"\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Daemon(ctx, path) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
