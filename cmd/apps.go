package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/logmux/internal/ui"
)

var (
	appsSources []string
	appsJSON    bool
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List application names seen across sources",
	RunE:  runApps,
}

func init() {
	rootCmd.AddCommand(appsCmd)
	appsCmd.Flags().StringSliceVar(&appsSources, "source", nil, "sources to ask (default: selection)")
	appsCmd.Flags().BoolVar(&appsJSON, "json", false, "print JSON")
}

func runApps(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	sources, err := selectSources(a, appsSources)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	names, errs := a.Merge.AppNames(ctx, sources)
	if appsJSON {
		return printJSON(cmd.OutOrStdout(), names)
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	if len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), ui.RenderSourceErrors(errs))
	}
	return nil
}
