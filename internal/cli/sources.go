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

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect fee sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in fee sources",
	RunE:  runSourcesList,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesListCmd.Flags().Bool("probe", false, "Fetch the configured field from every source")
}

var sourceDefaultURLs = map[string]string{
	"mempool": feesource.DefaultMempoolURL,
	"esplora": feesource.DefaultEsploraURL,
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSource(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	probe, _ := cmd.Flags().GetBool("probe")
	return listSources(cmd.Context(), cmd.OutOrStdout(), feesource.DefaultRegistry(), cfg, probe)
}

func listSources(ctx context.Context, out io.Writer, registry *feesource.Registry, cfg *config.Config, probe bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if probe {
		fmt.Fprintf(w, "  NAME\tURL\t%s\t\n", model.FeeField(cfg.Source.Field).Label())
	} else {
		fmt.Fprintf(w, "  NAME\tURL\t\n")
	}

	for _, name := range registry.List() {
		url := sourceDefaultURLs[name]
		marker := ""
		if name == cfg.Source.Name {
			marker = " *"
			if cfg.Source.BaseURL != "" {
				url = cfg.Source.BaseURL
			}
		}

		if !probe {
			fmt.Fprintf(w, "  %s%s\t%s\t\n", name, marker, url)
			continue
		}

		opts := feesource.Options{Field: model.FeeField(cfg.Source.Field), Timeout: cfg.Source.Timeout}
		if name == cfg.Source.Name {
			opts.BaseURL = cfg.Source.BaseURL
		}
		src, err := registry.New(name, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s%s\t%s\t%s\t\n", name, marker, url, probeSource(ctx, src, cfg.Source.Timeout))
	}

	return w.Flush()
}

func probeSource(ctx context.Context, src feesource.Source, timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	metric, err := src.Fetch(ctx)
	if err != nil {
		return "error: " + feesource.KindOf(err)
	}
	return fmt.Sprintf("%d sat/vB", metric)
}
