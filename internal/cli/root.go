package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ogulcanaydogan/fee-guardian/internal/config"
	"github.com/ogulcanaydogan/fee-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/fee-guardian/pkg/feesource"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fg",
	Short: "Fee Guardian - Bitcoin fee threshold alerts",
	Long: `Fee Guardian polls a Bitcoin fee estimator and sends one alert each time
the recommended fee crosses a configured threshold, in either direction.
Alerts go to Discord, Slack, a signed webhook, NATS or Kafka.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.fee-guardian/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger creates a structured logger from config. The returned closer
// releases the log file when logging.file is set.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.Logging.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
		w, closer = lj, lj
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), closer
}

// initSource creates the configured fee source.
func initSource(cfg *config.Config) (feesource.Source, error) {
	return feesource.DefaultRegistry().New(cfg.Source.Name, feesource.Options{
		BaseURL: cfg.Source.BaseURL,
		Field:   model.FeeField(cfg.Source.Field),
		Timeout: cfg.Source.Timeout,
	})
}

// initNotifier creates the single notifier selected by alerts.driver.
func initNotifier(cfg *config.Config, logger *slog.Logger) (alerts.Notifier, error) {
	a := cfg.Alerts
	switch a.Driver {
	case config.DriverDiscord:
		if a.Discord.WebhookURL != "" {
			return alerts.NewDiscordWebhookNotifier(a.Discord.WebhookURL), nil
		}
		return alerts.NewDiscordBotNotifier(a.Discord.APIURL, a.Discord.Token, a.Discord.ChannelID), nil
	case config.DriverSlack:
		return alerts.NewSlackNotifier(a.Slack.WebhookURL, a.Slack.Channel), nil
	case config.DriverWebhook:
		return alerts.NewWebhookNotifier(a.Webhook.URL, a.Webhook.Secret), nil
	case config.DriverNATS:
		n, err := alerts.NewNATSNotifier(a.NATS.URL, a.NATS.Subject)
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.DriverKafka:
		k, err := alerts.NewKafkaNotifier(a.Kafka.Brokers, a.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("kafka notifier: %w", err)
		}
		return k, nil
	case config.DriverLog:
		return alerts.NewLogNotifier(logger), nil
	}
	return nil, fmt.Errorf("unknown alerts.driver %q", a.Driver)
}

// closeNotifier releases broker connections held by a notifier.
func closeNotifier(n alerts.Notifier, logger *slog.Logger) {
	c, ok := n.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("close notifier", "notifier", n.Name(), "error", err)
	}
}
