package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/fee-guardian/internal/config"
	"github.com/ogulcanaydogan/fee-guardian/internal/metrics"
	"github.com/ogulcanaydogan/fee-guardian/internal/server"
	"github.com/ogulcanaydogan/fee-guardian/pkg/alerter"
	"github.com/ogulcanaydogan/fee-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the fee source and alert on threshold crossings",
	RunE:  runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Int64P("threshold", "t", 0, "Fee threshold in sat/vB (default from config)")
	watchCmd.Flags().DurationP("interval", "i", 0, "Poll interval (default from config)")
	watchCmd.Flags().Bool("fetch-on-start", false, "Fetch immediately instead of waiting one interval")
	watchCmd.Flags().StringP("listen", "l", "", "Status server listen address (default from config)")
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Threshold, _ = flags.GetInt64("threshold")
	}
	if flags.Changed("interval") {
		cfg.PollInterval, _ = flags.GetDuration("interval")
	}
	if flags.Changed("fetch-on-start") {
		cfg.FetchOnStart, _ = flags.GetBool("fetch-on-start")
	}
	if flags.Changed("listen") {
		cfg.Status.Listen, _ = flags.GetString("listen")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunWatch(ctx, cfg, logger)
}

// Daemon loads configuration from cfgPath and the environment, then watches
// until ctx is cancelled. It backs the standalone guardian binary.
func Daemon(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	logger.Info("guardian started",
		"source", cfg.Source.Name,
		"field", cfg.Source.Field,
		"threshold", cfg.Threshold,
		"driver", cfg.Alerts.Driver,
		"version", Version,
	)
	return RunWatch(ctx, cfg, logger)
}

// discordVerifier is implemented by notifiers that can check their
// destination before the loop starts.
type discordVerifier interface {
	Verify(ctx context.Context) error
}

// RunWatch wires the configured source and notifier into an alerter and
// runs it, with the status server when enabled, until ctx is cancelled.
func RunWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	src, err := initSource(cfg)
	if err != nil {
		return err
	}

	notifier, err := initNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier(notifier, logger)

	if v, ok := notifier.(discordVerifier); ok && cfg.Alerts.Discord.Verify {
		verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := v.Verify(verifyCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("verify discord channel: %w", err)
		}
		logger.Info("discord channel verified", "channel_id", cfg.Alerts.Discord.ChannelID)
	}

	return watch(ctx, cfg, logger, src, notifier)
}

func watch(ctx context.Context, cfg *config.Config, logger *slog.Logger, src alerter.Source, notifier alerts.Notifier) error {
	direction, err := alerter.ParseDirection(cfg.Alerts.Direction)
	if err != nil {
		return err
	}

	field := model.FeeField(cfg.Source.Field)
	a := alerter.New(uint64(cfg.Threshold), cfg.PollInterval,
		alerter.WithLogger(logger),
		alerter.WithRecorder(metrics.NewRecorder()),
		alerter.WithFetchOnStart(cfg.FetchOnStart),
		alerter.WithDirection(direction),
		alerter.WithSource(cfg.Source.Name, string(field)),
		alerter.WithLabel(field.Label()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx, src, notifier)
	})
	if cfg.Status.Listen != "" {
		srv := server.NewServer(a, logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Status.Listen)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("fee guardian stopped", "state", a.Status().State)
	return nil
}
