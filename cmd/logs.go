package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vietdv277/logmux/internal/config"
	"github.com/vietdv277/logmux/internal/ui"
	"github.com/vietdv277/logmux/pkg/types"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"query", "q"},
	Short:   "Query access logs across the selected sources",
	Long: `Query access logs across the selected sources.

Each source returns its own page for the same filters and sort; results are
merged, tagged with the source name, and re-sorted.

Examples:
  logmux logs --app billing --status 5xx --since 1h
  logmux logs --url /checkout --min-ms 500 --sort processingTimeMs
  logmux logs --source gateway --source archive --page 2 --size 100
  logmux logs --watch 10s`,
	RunE: runLogs,
}

// queryFlags holds the filter and paging flags shared by logs and live
type queryFlags struct {
	app, url, method, status string
	since, start, end        string
	minMs                    int64
	remote, server           string
	sort                     string
	asc                      bool
	page, size               int
	sources                  []string
}

var (
	logsFlags       queryFlags
	logsJSON        bool
	logsWatch       time.Duration
	logsInteractive bool
)

func (f *queryFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.app, "app", "a", "", "exact application name")
	fs.StringVarP(&f.url, "url", "u", "", "URL substring (or LIKE pattern with %)")
	fs.StringVarP(&f.method, "method", "m", "", "HTTP method")
	fs.StringVarP(&f.status, "status", "s", "", "status code (404) or class (4xx)")
	fs.StringVar(&f.since, "since", "", "only entries newer than a duration (15m, 2h)")
	fs.StringVar(&f.start, "start", "", "start time (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "end time (RFC3339 or YYYY-MM-DD)")
	fs.Int64Var(&f.minMs, "min-ms", 0, "minimum processing time in ms")
	fs.StringVar(&f.remote, "remote", "", "remote address substring")
	fs.StringVar(&f.server, "server", "", "server name substring")
	fs.StringVar(&f.sort, "sort", string(types.SortRequestTime), "sort field: requestTime, responseTime, processingTimeMs, responseStatus, url, method, appName, serverName, remoteAddr")
	fs.BoolVar(&f.asc, "asc", false, "sort ascending")
	fs.IntVar(&f.page, "page", 1, "page number, starting at 1")
	fs.IntVar(&f.size, "size", 0, "entries per source page (default from config)")
	fs.StringSliceVar(&f.sources, "source", nil, "query these sources instead of the selection")
}

// build turns the flags into a query; page numbers are 1-based on the command line
func (f *queryFlags) build(fs *pflag.FlagSet, defaults config.Defaults, now time.Time) (types.Query, error) {
	q := types.Query{
		Filters: types.Filters{
			AppName:    f.app,
			URL:        f.url,
			Method:     strings.ToUpper(f.method),
			StatusCode: strings.ToLower(f.status),
			RemoteAddr: f.remote,
			ServerName: f.server,
		},
		Sort: types.Sort{Field: types.SortField(f.sort), Dir: types.Desc},
		Page: f.page - 1,
		Size: defaults.PageSize,
	}
	if f.asc {
		q.Sort.Dir = types.Asc
	}
	if v := viper.GetInt("page_size"); v > 0 {
		q.Size = v
	}
	if fs.Changed("size") {
		q.Size = f.size
	}
	if fs.Changed("min-ms") {
		minMs := f.minMs
		q.Filters.MinProcessingTimeMs = &minMs
	}

	r, err := timeRange(f.since, f.start, f.end, now)
	if err != nil {
		return q, err
	}
	q.Filters.StartTime, q.Filters.EndTime = r.Start, r.End
	return q.Normalize(), nil
}

// timeRange combines --since with --start/--end; --since wins over --start
func timeRange(since, start, end string, now time.Time) (types.TimeRange, error) {
	var r types.TimeRange
	var err error
	if r.Start, err = parseTimeFlag(start, now); err != nil {
		return r, err
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return r, fmt.Errorf("invalid --since %q: %w", since, err)
		}
		t := now.Add(-d)
		r.Start = &t
	}
	if r.End, err = parseTimeFlag(end, now); err != nil {
		return r, err
	}
	return r, nil
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsFlags.bind(logsCmd.Flags())
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "print the merged page as JSON")
	logsCmd.Flags().DurationVarP(&logsWatch, "watch", "w", 0, "re-run the query on this interval")
	logsCmd.Flags().BoolVarP(&logsInteractive, "interactive", "i", false, "pick the sources for this query interactively")
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defaults := a.Store.Defaults()
	q, err := logsFlags.build(cmd.Flags(), defaults, time.Now())
	if err != nil {
		return err
	}
	refs := logsFlags.sources
	if logsInteractive {
		if refs, err = ui.SelectSources(a.Store.Sources(), a.Store.Selected()); err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}
	}
	sources, err := selectSources(a, refs)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sources selected. Use 'logmux sources select' to choose some.")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	asJSON := logsJSON || defaults.Output == config.OutputJSON
	show := func(q types.Query) error {
		page := a.Merge.Fetch(ctx, sources, q)
		if asJSON {
			return printJSON(cmd.OutOrStdout(), page)
		}
		ui.PrintEntries(cmd.OutOrStdout(), page)
		return nil
	}

	if logsWatch <= 0 {
		return show(q)
	}
	return watch(ctx, cmd, q, show)
}

// watch re-runs the query until interrupted, advancing the tick so cached
// batch files are re-listed.
func watch(ctx context.Context, cmd *cobra.Command, q types.Query, show func(types.Query) error) error {
	ticker := time.NewTicker(logsWatch)
	defer ticker.Stop()
	for {
		if err := show(q); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.MutedStyle.Render(fmt.Sprintf("  updated %s, next in %s (Ctrl-C to stop)",
			time.Now().Format("15:04:05"), logsWatch)))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			q.Tick++
		}
	}
}
