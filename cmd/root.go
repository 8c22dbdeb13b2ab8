package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vietdv277/logmux/internal/app"
	"github.com/vietdv277/logmux/internal/aws"
	"github.com/vietdv277/logmux/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logFormat  string
	profile    string
	region     string
)

var rootCmd = &cobra.Command{
	Use:   "logmux",
	Short: "logmux - query API access logs across many sources at once",
	Long: `logmux aggregates API access-log records from REST backends, Supabase tables,
S3-compatible buckets of batch files and remote file listings into one
filterable, sortable, paginated view.

Sources:
  logmux sources add --type api --name gw --base-url https://gw.internal
  logmux sources list            # List configured sources
  logmux sources select -i       # Pick the sources that take part in queries

Querying:
  logmux logs --status 5xx       # Merged page across selected sources
  logmux logs --watch 10s        # Re-run the query every 10 seconds
  logmux live                    # Interactive view with manual refresh
  logmux stats --since 1h        # Aggregates per source
  logmux show <id> --source gw   # Every field of one entry

Credential fields accept ssm:/path and secretsmanager:name references,
resolved with the AWS profile and region given by --profile/--region.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/logmux/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS profile for secret references")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region for secret references")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
}

func initConfig() {
	// Read from environment variables (LOGMUX_CONFIG, LOGMUX_PAGE_SIZE, ...)
	viper.SetEnvPrefix("LOGMUX")
	viper.AutomaticEnv()

	viper.SetDefault("config", config.GetConfigPath())
	if viper.GetString("profile") == "" {
		viper.Set("profile", os.Getenv("AWS_PROFILE"))
	}
	if viper.GetString("region") == "" {
		if r := os.Getenv("AWS_REGION"); r != "" {
			viper.Set("region", r)
		} else {
			viper.Set("region", os.Getenv("AWS_DEFAULT_REGION"))
		}
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch viper.GetString("log_format") {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", viper.GetString("log_format"))
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// openApp loads the config store and wires every adapter
func openApp() (*app.App, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.GetConfigPath()
	}
	store, err := config.Open(path)
	if err != nil {
		return nil, err
	}

	return app.New(store, app.WithSecrets(aws.NewSecretResolver(awsOptions()...))), nil
}

// awsOptions carries --profile and --region into SDK config loading
func awsOptions() []aws.ClientOption {
	var opts []aws.ClientOption
	if p := viper.GetString("profile"); p != "" {
		opts = append(opts, aws.WithProfile(p))
	}
	if r := viper.GetString("region"); r != "" {
		opts = append(opts, aws.WithRegion(r))
	}
	return opts
}
