package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/logmux/internal/ui"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

var (
	showSource string
	showJSON   bool
)

var showCmd = &cobra.Command{
	Use:   "show <entry-id>",
	Short: "Show every field of one log entry",
	Long: `Show every field of one log entry.

Without --source, the active sources are searched in order and the first
match is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showSource, "source", "", "source holding the entry")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	var refs []string
	if showSource != "" {
		refs = []string{showSource}
	}
	sources, err := selectSources(a, refs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	id := args[0]
	for _, src := range sources {
		e, err := a.Entry(ctx, src, id)
		if errors.Is(err, provider.ErrNotFound) || errors.Is(err, provider.ErrNotSupported) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name, err)
		}
		tagged := *e
		tagged.SourceID, tagged.SourceName, tagged.SourceColor = src.ID, src.Name, src.Color
		if showJSON {
			return printJSON(cmd.OutOrStdout(), tagged)
		}
		ui.PrintEntry(cmd.OutOrStdout(), &tagged)
		return nil
	}
	return fmt.Errorf("%w: %s (searched %v)", provider.ErrNotFound, id, sourceNames(sources))
}

// sourceNames is used in user-facing messages
func sourceNames(sources []types.LogSource) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}
