package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/fee-guardian/pkg/alerter"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

// Config holds all Fee Guardian configuration.
type Config struct {
	Threshold    int64         `mapstructure:"threshold" yaml:"threshold"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	FetchOnStart bool          `mapstructure:"fetch_on_start" yaml:"fetch_on_start"`
	Source       SourceConfig  `mapstructure:"source" yaml:"source"`
	Alerts       AlertsConfig  `mapstructure:"alerts" yaml:"alerts"`
	Status       StatusConfig  `mapstructure:"status" yaml:"status"`
	Logging      LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SourceConfig selects the fee endpoint.
type SourceConfig struct {
	Name    string        `mapstructure:"name" yaml:"name"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Field   string        `mapstructure:"field" yaml:"field"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AlertsConfig selects one notifier driver and its settings.
type AlertsConfig struct {
	Driver    string        `mapstructure:"driver" yaml:"driver"`
	Direction string        `mapstructure:"direction" yaml:"direction"`
	Discord   DiscordConfig `mapstructure:"discord" yaml:"discord"`
	Slack     SlackConfig   `mapstructure:"slack" yaml:"slack"`
	Webhook   WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
	NATS      NATSConfig    `mapstructure:"nats" yaml:"nats"`
	Kafka     KafkaConfig   `mapstructure:"kafka" yaml:"kafka"`
}

// DiscordConfig defines Discord settings. Either Token and ChannelID or
// WebhookURL must be set.
type DiscordConfig struct {
	Token      string `mapstructure:"token" yaml:"token"`
	ChannelID  string `mapstructure:"channel_id" yaml:"channel_id"`
	APIURL     string `mapstructure:"api_url" yaml:"api_url"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Verify     bool   `mapstructure:"verify" yaml:"verify"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Secret string `mapstructure:"secret" yaml:"secret"`
}

// NATSConfig defines the NATS publisher.
type NATSConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// KafkaConfig defines the Kafka producer.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

// StatusConfig defines the status HTTP server. An empty Listen disables it.
type StatusConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Notifier drivers accepted by alerts.driver.
const (
	DriverDiscord = "discord"
	DriverSlack   = "slack"
	DriverWebhook = "webhook"
	DriverNATS    = "nats"
	DriverKafka   = "kafka"
	DriverLog     = "log"
)

// Drivers lists every accepted alerts.driver value.
var Drivers = []string{DriverDiscord, DriverSlack, DriverWebhook, DriverNATS, DriverKafka, DriverLog}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".fee-guardian"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("FG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables understood by the original Discord bot.
	if err := v.BindEnv("alerts.discord.token", "FG_ALERTS_DISCORD_TOKEN", "DISCORD_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("alerts.discord.channel_id", "FG_ALERTS_DISCORD_CHANNEL_ID", "CHANNEL_ID"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threshold", 2)
	v.SetDefault("poll_interval", "5m")
	v.SetDefault("fetch_on_start", false)

	v.SetDefault("source.name", "mempool")
	v.SetDefault("source.base_url", "")
	v.SetDefault("source.field", string(model.FieldFastest))
	v.SetDefault("source.timeout", "10s")

	v.SetDefault("alerts.driver", DriverDiscord)
	v.SetDefault("alerts.direction", string(alerter.DirectionBoth))
	v.SetDefault("alerts.discord.token", "")
	v.SetDefault("alerts.discord.channel_id", "")
	v.SetDefault("alerts.discord.api_url", "https://discord.com/api/v10")
	v.SetDefault("alerts.discord.webhook_url", "")
	v.SetDefault("alerts.discord.verify", true)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#fees")
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
	v.SetDefault("alerts.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("alerts.nats.subject", "fees.alerts")
	v.SetDefault("alerts.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("alerts.kafka.topic", "fee-alerts")

	v.SetDefault("status.listen", "127.0.0.1:9102")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// Validate rejects configuration the alerter cannot start with.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", c.Threshold)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if _, err := alerter.ParseDirection(c.Alerts.Direction); err != nil {
		return fmt.Errorf("alerts.direction: %w", err)
	}
	if err := c.Alerts.validateDriver(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// ValidateSource checks only the source settings, for commands that fetch
// without alerting.
func (c *Config) ValidateSource() error {
	if c.Source.Name == "" {
		return errors.New("source.name is required")
	}
	if !model.FeeField(c.Source.Field).Valid() {
		return fmt.Errorf("unknown source.field %q", c.Source.Field)
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout)
	}
	return nil
}

func (a AlertsConfig) validateDriver() error {
	switch a.Driver {
	case DriverDiscord:
		if a.Discord.WebhookURL != "" {
			return nil
		}
		if a.Discord.Token == "" {
			return errors.New("alerts.discord.token is required (or set DISCORD_TOKEN)")
		}
		if a.Discord.ChannelID == "" {
			return errors.New("alerts.discord.channel_id is required (or set CHANNEL_ID)")
		}
	case DriverSlack:
		if a.Slack.WebhookURL == "" {
			return errors.New("alerts.slack.webhook_url is required")
		}
	case DriverWebhook:
		if a.Webhook.URL == "" {
			return errors.New("alerts.webhook.url is required")
		}
	case DriverNATS:
		if a.NATS.URL == "" || a.NATS.Subject == "" {
			return errors.New("alerts.nats.url and alerts.nats.subject are required")
		}
	case DriverKafka:
		if len(a.Kafka.Brokers) == 0 || a.Kafka.Topic == "" {
			return errors.New("alerts.kafka.brokers and alerts.kafka.topic are required")
		}
	case DriverLog:
	default:
		return fmt.Errorf("unknown alerts.driver %q (want one of %s)", a.Driver, strings.Join(Drivers, ", "))
	}
	return nil
}

// Redacted returns a copy with credentials masked, safe to print.
func (c Config) Redacted() Config {
	c.Alerts.Discord.Token = mask(c.Alerts.Discord.Token)
	c.Alerts.Discord.WebhookURL = mask(c.Alerts.Discord.WebhookURL)
	c.Alerts.Slack.WebhookURL = mask(c.Alerts.Slack.WebhookURL)
	c.Alerts.Webhook.Secret = mask(c.Alerts.Webhook.Secret)
	c.Alerts.Kafka.Brokers = append([]string(nil), c.Alerts.Kafka.Brokers...)
	return c
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
