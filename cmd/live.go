package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietdv277/logmux/internal/ui"
	"github.com/vietdv277/logmux/pkg/types"
)

var (
	liveFlags    queryFlags
	liveInterval time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Interactive view that refreshes the merged logs",
	Long: `Interactive view that refreshes the merged logs on an interval.

Keys: r refresh, n/p next and previous page, q quit.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
	liveFlags.bind(liveCmd.Flags())
	liveCmd.Flags().DurationVar(&liveInterval, "interval", 0, "refresh interval, 0 disables (default from config)")
}

func runLive(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defaults := a.Store.Defaults()
	q, err := liveFlags.build(cmd.Flags(), defaults, time.Now())
	if err != nil {
		return err
	}
	sources, err := selectSources(a, liveFlags.sources)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sources selected. Use 'logmux sources select' to choose some.")
		return nil
	}

	interval := defaults.RefreshInterval
	if cmd.Flags().Changed("interval") {
		interval = liveInterval
	}

	ctx, cancel := signalContext()
	defer cancel()
	return ui.RunLive(ctx, sources, q, interval, func(ctx context.Context, q types.Query) *types.MergedPage {
		return a.Merge.Fetch(ctx, sources, q)
	})
}
