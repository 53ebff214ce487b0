package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"db-snapshot/internal/application"
	"db-snapshot/internal/display"
	appErrors "db-snapshot/internal/errors"
	"db-snapshot/internal/logging"
	"db-snapshot/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// globalOptions holds the persistent flags shared by every subcommand
type globalOptions struct {
	cfgFile         string
	envFile         string
	dbDriver        string
	dbPath          string
	documents       string
	storageProvider string
	verbose         bool
	quiet           bool
	logFile         string
	logFormat       string
	timeout         time.Duration

	// Display flags
	noColor      bool
	theme        string
	outputFormat string
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// NewRootCommand builds the db-snapshot command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "db-snapshot",
		Short: "Write, list and rotate JSON snapshots of an application database",
		Long: `db-snapshot exports every user table of a SQLite or MySQL database into a
single JSON document stored under the documents directory (or an object store),
and keeps only the newest snapshots around.

Examples:
  # Snapshot the default database with a label, keeping the newest 3
  db-snapshot snapshot create --label pre-upgrade

  # List snapshots as JSON
  db-snapshot snapshot list --format json

  # Keep only the newest 5 snapshots
  db-snapshot snapshot rotate --keep 5

  # Write a configuration file to start from
  db-snapshot config init`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.db-snapshot.yaml)")
	flags.StringVar(&opts.envFile, "env-file", "", "load environment variables from this file first")
	flags.StringVar(&opts.dbDriver, "db-driver", "", "database driver (sqlite, mysql)")
	flags.StringVar(&opts.dbPath, "db-path", "", "path of the SQLite database file")
	flags.StringVar(&opts.documents, "documents", "", "documents directory for local snapshot storage")
	flags.StringVar(&opts.storageProvider, "storage", "", "storage provider ("+providerList()+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "abort the command after this long (0 disables)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable color output")
	flags.StringVar(&opts.theme, "theme", "dark", "color theme (dark, light)")
	flags.StringVar(&opts.outputFormat, "format", "table", "output format (table, json, yaml)")

	rootCmd.AddCommand(newSnapshotCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and reports a failure on stderr
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		message := appErrors.FormatUserError(err)
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) && appErr.Cause != nil {
			message += ": " + appErr.Cause.Error()
		}
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", message)
		for _, hint := range application.TroubleshootingHints(err) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "  -", hint)
		}
	}
	return err
}

// validate checks flag combinations that do not need the configuration
func (o *globalOptions) validate() error {
	config := o.displayConfig(nil)
	if err := config.Validate(); err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypeValidation, "invalid command line flags", err)
	}
	if o.timeout < 0 {
		return appErrors.NewAppError(appErrors.ErrorTypeValidation, "--timeout cannot be negative", nil)
	}
	return nil
}

// loadConfig merges defaults, the config file, DB_SNAPSHOT_* variables and
// flags, in increasing order of precedence.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (application.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return application.Config{}, appErrors.NewAppError(appErrors.ErrorTypeValidation,
				"failed to load environment file "+o.envFile, err)
		}
	}

	v := viper.New()
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".db-snapshot")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return application.Config{}, appErrors.NewAppError(appErrors.ErrorTypeValidation,
				"failed to read configuration file", err)
		}
	} else if o.verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	}

	config := application.DefaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return application.Config{}, appErrors.NewAppError(appErrors.ErrorTypeValidation,
			"failed to parse configuration file", err)
	}

	config.LoadFromEnvironment()
	o.applyFlags(cmd, &config)
	return config, nil
}

func (o *globalOptions) applyFlags(cmd *cobra.Command, config *application.Config) {
	flags := cmd.Flags()

	if flags.Changed("db-driver") {
		config.Database.Driver = o.dbDriver
	}
	if flags.Changed("db-path") {
		config.Database.Path = o.dbPath
	}
	if flags.Changed("storage") {
		config.Storage.Provider = storage.ProviderType(o.storageProvider)
	}
	if flags.Changed("documents") {
		if config.Storage.Local == nil {
			config.Storage.Local = &storage.LocalConfig{}
		}
		config.Storage.Local.BasePath = o.documents
	}

	switch {
	case o.verbose:
		config.Logging.Level = logging.LogLevelVerbose
	case o.quiet:
		config.Logging.Level = logging.LogLevelQuiet
	}
	if flags.Changed("log-file") {
		config.Logging.File = o.logFile
	}
	if flags.Changed("log-format") {
		config.Logging.Format = o.logFormat
	}
	if flags.Changed("timeout") {
		config.Timeout = o.timeout
	}

	config.SetDefaults()
}

func (o *globalOptions) displayConfig(cmd *cobra.Command) *display.DisplayConfig {
	config := &display.DisplayConfig{
		ColorEnabled: !o.noColor,
		Theme:        o.theme,
		OutputFormat: display.OutputFormat(o.outputFormat),
		UseIcons:     true,
		VerboseMode:  o.verbose,
		QuietMode:    o.quiet,
	}
	if cmd != nil {
		config.Writer = cmd.OutOrStdout()
		config.ErrWriter = cmd.ErrOrStderr()
	}
	return config
}

func (o *globalOptions) display(cmd *cobra.Command) *display.Service {
	return display.NewService(o.displayConfig(cmd))
}

// withApplication builds the application from the merged configuration and
// runs fn under its signal and timeout handling.
func (o *globalOptions) withApplication(cmd *cobra.Command, operation string,
	fn func(ctx context.Context, app *application.Application, out *display.Service) error) error {

	config, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := application.New(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	out := o.display(cmd)
	return app.Run(ctx, operation, func(ctx context.Context) error {
		return fn(ctx, app, out)
	})
}

func providerList() string {
	names := make([]string, 0, len(storage.SupportedProviders()))
	for _, p := range storage.SupportedProviders() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "db-snapshot version %s\n", version)
			fmt.Fprintf(w, "Built: %s\n", buildTime)
			fmt.Fprintf(w, "Commit: %s\n", gitCommit)
			fmt.Fprintf(w, "Go version: %s\n", goVersion)
		},
	}
}
