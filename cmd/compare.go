package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/pipeline"
)

var (
	compareOffline bool
	compareDryRun  bool
	compareFormat  string
)

var compareCmd = &cobra.Command{
	Use:   "compare <query>",
	Short: "Run one comparison and print the result",
	Example: `  compare-cli compare "iPhone 15 vs Samsung Galaxy S24"
  compare-cli compare --offline --format table "vivo y73 vs realme 8 pro"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareFormat != "json" && compareFormat != "table" {
			return eris.Errorf("unknown format %q (json or table)", compareFormat)
		}
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg, initMode{Offline: compareOffline, DryRun: compareDryRun})
		if err != nil {
			return err
		}
		defer env.Close()

		query := strings.Join(args, " ")
		resp, err := env.Pipeline.Run(ctx, query)
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		zap.L().Info("comparison complete",
			zap.String("run_id", resp.RunID),
			zap.Int("products", resp.Stats.ProductsCompared),
			zap.Int("specs_extracted", resp.Stats.SpecsExtracted),
		)

		if compareFormat == "table" {
			formatComparison(os.Stdout, resp)
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareOffline, "offline", false, "run without the language model")
	compareCmd.Flags().BoolVar(&compareDryRun, "dry-run", false, "use canned stub clients instead of external services")
	compareCmd.Flags().StringVar(&compareFormat, "format", "json", "output format: json or table")
	rootCmd.AddCommand(compareCmd)
}

// formatComparison writes the specification grid and the verdicts to out.
func formatComparison(out io.Writer, resp *pipeline.Response) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	table := resp.ComparisonTable

	_, _ = fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	dashes := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		dashes[i] = strings.Repeat("-", len([]rune(h)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(dashes, "\t"))
	for _, row := range table.Rows {
		cells := append([]string{row.Spec}, row.Values...)
		for i, c := range cells {
			cells[i] = truncateCell(c, 40)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	rec := resp.RecommendationSummary
	_, _ = fmt.Fprintln(out)
	if rec.PriorityRecommendation.Winner != "" {
		_, _ = fmt.Fprintf(out, "Best for %s: %s (%s)\n", rec.UserPriority, rec.PriorityRecommendation.Winner, rec.PriorityRecommendation.Reason)
	}
	for _, a := range rec.AspectRecommendations {
		if a.Winner == "" {
			continue
		}
		_, _ = fmt.Fprintf(out, "  %s: %s - %s\n", a.Aspect, a.Winner, a.Reason)
	}
	if rec.OverallRecommendation.Winner != "" {
		_, _ = fmt.Fprintf(out, "Overall: %s\n", rec.OverallRecommendation.Winner)
	}
	if rec.OverallRecommendation.Summary != "" {
		_, _ = fmt.Fprintln(out, rec.OverallRecommendation.Summary)
	}
	_, _ = fmt.Fprintf(out, "\n%d products, %d with specs, %d pages fetched, %d failed\n",
		resp.Stats.ProductsCompared, resp.Stats.SpecsExtracted, resp.Stats.URLsFetched, resp.Stats.URLsFailed)
}

func truncateCell(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
