package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/fee-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Work with the configured notifier",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test alert through the configured driver",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
	notifyTestCmd.Flags().String("side", "below", "Crossing side to simulate (below, above)")
	notifyTestCmd.Flags().Uint64("fee", 0, "Fee to report in the test alert (default: the threshold)")
}

func runNotifyTest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	sideName, _ := cmd.Flags().GetString("side")
	var side model.AlertState
	if err := side.UnmarshalText([]byte(sideName)); err != nil || side == model.StateUnset {
		return fmt.Errorf("invalid --side %q: want below or above", sideName)
	}

	fee := uint64(cfg.Threshold)
	if cmd.Flags().Changed("fee") {
		fee, _ = cmd.Flags().GetUint64("fee")
	}

	notifier, err := initNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier(notifier, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	alert := testAlert(side, model.Metric(fee), uint64(cfg.Threshold), cfg.Source.Name, cfg.Source.Field)
	return sendTest(ctx, cmd.OutOrStdout(), notifier, alert)
}

func testAlert(side model.AlertState, fee model.Metric, threshold uint64, source, field string) alerts.Alert {
	return alerts.Alert{
		ID:        uuid.NewString(),
		Level:     alerts.LevelFor(side),
		Side:      side,
		Metric:    fee,
		Threshold: threshold,
		Source:    source,
		Field:     field,
		Message:   fmt.Sprintf("Fee Guardian test alert: %s fee %d sat/vB, threshold %d sat/vB", side, fee, threshold),
		At:        time.Now().UTC(),
	}
}

func sendTest(ctx context.Context, out io.Writer, notifier alerts.Notifier, alert alerts.Alert) error {
	if err := notifier.Send(ctx, alert); err != nil {
		return fmt.Errorf("send test alert via %s: %w", notifier.Name(), err)
	}
	fmt.Fprintf(out, "Test alert sent:\n")
	fmt.Fprintf(out, "  ID:       %s\n", alert.ID)
	fmt.Fprintf(out, "  Driver:   %s\n", notifier.Name())
	fmt.Fprintf(out, "  Side:     %s\n", alert.Side)
	fmt.Fprintf(out, "  Message:  %s\n", alert.Message)
	return nil
}
