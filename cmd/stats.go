package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietdv277/logmux/internal/ui"
	"github.com/vietdv277/logmux/pkg/types"
)

var (
	statsSources []string
	statsSince   string
	statsStart   string
	statsEnd     string
	statsJSON    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show request statistics per source",
	Long: `Show request statistics per source: totals, latency and counts by
status, method and application.

Examples:
  logmux stats
  logmux stats --source gateway --since 24h`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringSliceVar(&statsSources, "source", nil, "sources to report (default: selection)")
	statsCmd.Flags().StringVar(&statsSince, "since", "", "only entries newer than a duration (15m, 2h)")
	statsCmd.Flags().StringVar(&statsStart, "start", "", "start time (RFC3339 or YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "end time (RFC3339 or YYYY-MM-DD)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}

type sourceStats struct {
	Source string       `json:"source"`
	Stats  *types.Stats `json:"stats,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	r, err := timeRange(statsSince, statsStart, statsEnd, time.Now())
	if err != nil {
		return err
	}
	sources, err := selectSources(a, statsSources)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results := make([]sourceStats, 0, len(sources))
	for _, out := range a.Merge.Stats(ctx, sources, types.StatsQuery{Range: r}) {
		res := sourceStats{Source: out.Source.Name, Stats: out.Stats}
		if out.Err != nil {
			res.Error = out.Err.Error()
		}
		results = append(results, res)
	}

	if statsJSON {
		return printJSON(cmd.OutOrStdout(), results)
	}
	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.Error != "" {
			fmt.Fprintf(out, "%s %s: %s\n\n", ui.ErrorStyle.Render("✗"), res.Source, res.Error)
			continue
		}
		ui.PrintStats(out, res.Source, res.Stats)
		fmt.Fprintln(out)
	}
	return nil
}
