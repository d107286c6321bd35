package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/fee-guardian/internal/config"
	"github.com/ogulcanaydogan/fee-guardian/pkg/feesource"
	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch current fee estimates once",
	Long: `Fetch the recommended fees from the configured source, print every estimate
and show which side of the threshold the configured field is on.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringP("source", "s", "", "Fee source (default from config)")
	checkCmd.Flags().Int64P("threshold", "t", 0, "Fee threshold in sat/vB (default from config)")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Name, _ = flags.GetString("source")
		cfg.Source.BaseURL = ""
	}
	if flags.Changed("threshold") {
		cfg.Threshold, _ = flags.GetInt64("threshold")
	}
	if cfg.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", cfg.Threshold)
	}
	if err := cfg.ValidateSource(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	src, err := initSource(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Source.Timeout+5*time.Second)
	defer cancel()

	return printCheck(ctx, cmd.OutOrStdout(), src, model.FeeField(cfg.Source.Field), uint64(cfg.Threshold))
}

func printCheck(ctx context.Context, out io.Writer, src feesource.Source, field model.FeeField, threshold uint64) error {
	est, err := src.Estimates(ctx)
	if err != nil {
		return fmt.Errorf("fetch estimates: %w", err)
	}

	fmt.Fprintf(out, "=== Fee estimates (%s) ===\n", src.Name())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  FIELD\tSAT/VB\t\n")
	for _, f := range model.Fields {
		v, _ := est.Pick(f)
		marker := ""
		if f == field {
			marker = "<- watched"
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\n", f, v, marker)
	}
	w.Flush()

	metric, _ := est.Pick(field)
	side := model.SideOf(metric, threshold)
	fmt.Fprintf(out, "\nThreshold: %d sat/vB\n", threshold)
	if side == model.StateBelow {
		fmt.Fprintf(out, "The %s is at or below the threshold (%d <= %d)\n", field.Label(), metric, threshold)
	} else {
		fmt.Fprintf(out, "The %s is above the threshold (%d > %d)\n", field.Label(), metric, threshold)
	}
	return nil
}
