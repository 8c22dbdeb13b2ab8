package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vietdv277/logmux/internal/aws"
	"github.com/vietdv277/logmux/internal/config"
	"github.com/vietdv277/logmux/internal/ui"
	"github.com/vietdv277/logmux/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"source", "src"},
	Short:   "Manage log sources",
	Long: `Manage the configured log sources.

Source types:
  api           paginated REST backend (--base-url, --base-path, --api-key)
  supabase      hosted table (--project-url, --access-key, --table) or --database-url
  supabase-s3   batch files in a bucket (--project-url, --access-key, --bucket, --prefix)
  file          remote file listing (--base-url, --directory, --format), REST otherwise

Examples:
  logmux sources add --type api --name gateway --base-url http://gw:8080 --base-path /api/v1
  logmux sources add --type supabase-s3 --name archive --project-url https://abc.supabase.co \
      --access-key ssm:/logmux/s3-secret --bucket logs --prefix api/ --format ndjson
  logmux sources edit gateway --api-key secretsmanager:gateway-key
  logmux sources test
  logmux sources export > sources.json`,
}

var sourcesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured sources",
	RunE:    runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source",
	RunE:  runSourcesAdd,
}

var sourcesEditCmd = &cobra.Command{
	Use:   "edit <source>",
	Short: "Edit a source; cached entries and connections are dropped",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesEdit,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:     "rm <source>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a source",
	Args:    cobra.ExactArgs(1),
	RunE:    runSourcesRemove,
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <source>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <source>",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

var sourcesTestCmd = &cobra.Command{
	Use:   "test [source...]",
	Short: "Test the connection of sources (all when none given)",
	RunE:  runSourcesTest,
}

var sourcesSelectCmd = &cobra.Command{
	Use:   "select [source...]",
	Short: "Choose the sources that take part in queries",
	RunE:  runSourcesSelect,
}

var sourcesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export sources as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSourcesExport,
}

var sourcesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import sources from an export document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesImport,
}

// sourceFlags holds the editable fields of a source
type sourceFlags struct {
	src      types.LogSource
	srcType  string
	disabled bool
}

var (
	addFlags          sourceFlags
	editFlags         sourceFlags
	sourcesJSON       bool
	selectInteractive bool
	importMode        string
)

func (f *sourceFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.src.Name, "name", "", "display name")
	fs.StringVar(&f.src.Color, "color", "", "display color (#rrggbb)")
	fs.StringVar(&f.src.BaseURL, "base-url", "", "REST or file-listing base URL")
	fs.StringVar(&f.src.BasePath, "base-path", "", "path prefix under the base URL")
	fs.StringVar(&f.src.APIKey, "api-key", "", "API key sent as X-Api-Key")
	fs.StringVar(&f.src.ProjectURL, "project-url", "", "Supabase project URL")
	fs.StringVar(&f.src.AccessKey, "access-key", "", "Supabase access key or S3 secret key")
	fs.StringVar(&f.src.Table, "table", "", "table holding access logs")
	fs.StringVar(&f.src.DatabaseURL, "database-url", "", "postgres:// DSN for direct table access")
	fs.StringVar(&f.src.Bucket, "bucket", "", "storage bucket")
	fs.StringVar(&f.src.Prefix, "prefix", "", "object key prefix")
	fs.StringVar(&f.src.AccessKeyID, "access-key-id", "", "S3 access key id (default: project ref)")
	fs.StringVar(&f.src.Region, "storage-region", "", "storage region")
	fs.StringVar(&f.src.Directory, "directory", "", "remote directory to list")
	fs.StringVar(&f.src.FileFormat, "format", "", "batch file format: ndjson or csv")
	fs.IntVar(&f.src.MaxFiles, "max-files", 0, "newest files to load (default 10)")
}

// apply copies every flag the user set onto dst
func (f *sourceFlags) apply(fs *pflag.FlagSet, dst *types.LogSource) {
	fields := map[string]func(){
		"name":           func() { dst.Name = f.src.Name },
		"color":          func() { dst.Color = f.src.Color },
		"base-url":       func() { dst.BaseURL = f.src.BaseURL },
		"base-path":      func() { dst.BasePath = f.src.BasePath },
		"api-key":        func() { dst.APIKey = f.src.APIKey },
		"project-url":    func() { dst.ProjectURL = f.src.ProjectURL },
		"access-key":     func() { dst.AccessKey = f.src.AccessKey },
		"table":          func() { dst.Table = f.src.Table },
		"database-url":   func() { dst.DatabaseURL = f.src.DatabaseURL },
		"bucket":         func() { dst.Bucket = f.src.Bucket },
		"prefix":         func() { dst.Prefix = f.src.Prefix },
		"access-key-id":  func() { dst.AccessKeyID = f.src.AccessKeyID },
		"storage-region": func() { dst.Region = f.src.Region },
		"directory":      func() { dst.Directory = f.src.Directory },
		"format":         func() { dst.FileFormat = f.src.FileFormat },
		"max-files":      func() { dst.MaxFiles = f.src.MaxFiles },
	}
	for name, set := range fields {
		if fs.Changed(name) {
			set()
		}
	}
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesEditCmd, sourcesRemoveCmd,
		sourcesEnableCmd, sourcesDisableCmd, sourcesTestCmd, sourcesSelectCmd,
		sourcesExportCmd, sourcesImportCmd)

	sourcesListCmd.Flags().BoolVar(&sourcesJSON, "json", false, "print JSON")

	addFlags.bind(sourcesAddCmd.Flags())
	sourcesAddCmd.Flags().StringVarP(&addFlags.srcType, "type", "t", "", "source type: api, supabase, supabase-s3, file")
	sourcesAddCmd.Flags().BoolVar(&addFlags.disabled, "disabled", false, "add the source disabled")
	_ = sourcesAddCmd.MarkFlagRequired("name")
	_ = sourcesAddCmd.MarkFlagRequired("type")

	editFlags.bind(sourcesEditCmd.Flags())

	sourcesSelectCmd.Flags().BoolVarP(&selectInteractive, "interactive", "i", false, "pick sources interactively")
	sourcesImportCmd.Flags().StringVar(&importMode, "mode", string(config.ImportMerge), "merge (skip existing ids) or replace")
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	sources := a.Store.Sources()
	if sourcesJSON {
		return printJSON(cmd.OutOrStdout(), sources)
	}
	if len(sources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sources configured. Add one with 'logmux sources add'.")
		return nil
	}
	ui.PrintSources(cmd.OutOrStdout(), sources, a.Store.Selected())
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	src := addFlags.src
	src.Type = types.SourceType(addFlags.srcType)
	src.Enabled = !addFlags.disabled

	added, err := a.Store.Add(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added source %s (%s) with id %s\n", added.Name, added.Type, added.ID)
	return nil
}

func runSourcesEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	updated, err := a.UpdateSource(args[0], func(src *types.LogSource) {
		editFlags.apply(cmd.Flags(), src)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated source %s\n", updated.Name)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	removed, err := a.RemoveSource(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", removed.Name)
	return nil
}

func setEnabled(cmd *cobra.Command, ref string, enabled bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	src, err := a.SetEnabled(ref, enabled)
	if err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Source %s %s\n", src.Name, state)
	return nil
}

func runSourcesTest(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	sources := a.Store.Sources()
	if len(args) > 0 {
		if sources, err = selectSources(a, args); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	if referencesSecrets(sources) {
		id, err := aws.GetCallerIdentity(ctx, awsOptions()...)
		if err != nil {
			fmt.Fprintf(out, "%s secret references: %v\n", ui.ErrorStyle.Render("✗"), err)
		} else {
			fmt.Fprintf(out, "%s secret references resolve as %s\n", ui.SuccessStyle.Render("✓"), id.Arn)
		}
	}

	failed := 0
	for _, src := range sources {
		start := time.Now()
		if err := a.TestConnection(ctx, src); err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", ui.ErrorStyle.Render("✗"), src.Name, err)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", ui.SuccessStyle.Render("✓"), src.Name,
			ui.MutedStyle.Render(time.Since(start).Round(time.Millisecond).String()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(sources))
	}
	return nil
}

func referencesSecrets(sources []types.LogSource) bool {
	for _, src := range sources {
		if aws.UsesReferences(src.APIKey, src.AccessKey, src.DatabaseURL) {
			return true
		}
	}
	return false
}

func runSourcesSelect(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	refs := args
	if selectInteractive || len(args) == 0 {
		ids, err := ui.SelectSources(a.Store.Sources(), a.Store.Selected())
		if err != nil {
			return err
		}
		refs = ids
	}
	if err := a.Store.Select(refs); err != nil {
		return err
	}

	var names []string
	for _, src := range a.Store.Sources() {
		if slices.Contains(a.Store.Selected(), src.ID) {
			names = append(names, src.Name)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Selected %d sources: %v\n", len(names), names)
	return nil
}

func runSourcesExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	data, err := a.Store.Export()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported sources to %s\n", args[0])
	return nil
}

func runSourcesImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	res, err := a.Store.Import(data, config.ImportMode(importMode))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sources, skipped %d existing\n", res.Added, res.Skipped)
	return nil
}
