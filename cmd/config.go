package cmd

import (
	"os"
	"path/filepath"

	"db-snapshot/internal/application"
	"db-snapshot/internal/display"

	"github.com/spf13/cobra"
)

const maskedSecret = "********"

func newConfigCommand(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or show the configuration",
	}

	configCmd.AddCommand(newConfigInitCommand(opts))
	configCmd.AddCommand(newConfigShowCommand(opts))
	return configCmd
}

func newConfigInitCommand(opts *globalOptions) *cobra.Command {
	var (
		output string
		force  bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Long: `Write the default configuration as YAML. Values given with the global flags
(--db-path, --documents, --storage, ...) are written instead of the defaults.

Examples:
  # Write $HOME/.db-snapshot.yaml
  db-snapshot config init

  # Write a project local file for a MySQL database
  db-snapshot config init --output ./db-snapshot.yaml --db-driver mysql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				output = filepath.Join(home, ".db-snapshot.yaml")
			}

			config := application.DefaultConfig()
			opts.applyFlags(cmd, &config)

			if err := application.WriteConfigFile(output, config, force); err != nil {
				return err
			}

			out := opts.display(cmd)
			out.Success("Configuration written to " + output)
			if config.Database.Password == "" {
				out.Muted("Set DB_SNAPSHOT_DB_PASSWORD instead of storing passwords in the file")
			}
			return nil
		},
	}

	initCmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default is $HOME/.db-snapshot.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return initCmd
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			out := opts.display(cmd)
			if err := config.Validate(); err != nil {
				out.Warning(err.Error())
			}
			if out.Format() == display.FormatTable {
				// a table has no good shape for nested settings
				out.Config().OutputFormat = display.FormatYAML
			}
			return out.Render(maskSecrets(config), nil)
		},
	}
}

// maskSecrets returns a copy of config safe to print
func maskSecrets(config application.Config) application.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = maskedSecret
		}
	}

	mask(&config.Database.Password)
	if config.Storage.S3 != nil {
		s3 := *config.Storage.S3
		mask(&s3.SecretKey)
		config.Storage.S3 = &s3
	}
	if config.Storage.Azure != nil {
		azure := *config.Storage.Azure
		mask(&azure.AccountKey)
		config.Storage.Azure = &azure
	}
	return config
}
