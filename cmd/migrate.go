package cmd

import (
	"context"
	"fmt"

	"db-snapshot/internal/application"
	"db-snapshot/internal/display"
	appErrors "db-snapshot/internal/errors"
	"db-snapshot/internal/migration"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// preMigrateLabel labels the snapshot taken before pending migrations run
const preMigrateLabel = "pre_migrate"

// migrateResult is the structured output of migrate
type migrateResult struct {
	Applied  []string `json:"applied" yaml:"applied"`
	Snapshot string   `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var (
		label      string
		noSnapshot bool
	)

	migrateCmd := &cobra.Command{
		Use:   "migrate [dir]",
		Short: "Apply pending SQL migrations, snapshotting first",
		Long: `Apply every *.sql file in dir (default ./migrations) that is not yet recorded
in the migrations table. Files run in filename order, each in its own
transaction, and are recorded by name without the extension.

When anything is pending, a snapshot is written first so the state before the
upgrade can be inspected later.

Examples:
  db-snapshot migrate
  db-snapshot migrate ./db/migrations --no-snapshot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "migrations"
			if len(args) == 1 {
				dir = args[0]
			}

			migrations, err := migration.LoadDir(afero.NewOsFs(), dir)
			if err != nil {
				return appErrors.NewAppError(appErrors.ErrorTypeValidation, "invalid migrations", err)
			}

			return opts.withApplication(cmd, "migrate", func(ctx context.Context, app *application.Application, out *display.Service) error {
				ledger := migration.NewLedger(app.Logger())
				result := migrateResult{Applied: []string{}}

				pending := ledger.Pending(ctx, app.Database(), migrations)
				if len(pending) == 0 {
					if out.Format() != display.FormatTable {
						return out.Render(result, nil)
					}
					out.Info(fmt.Sprintf("Database is up to date, %d migration(s) already applied", len(migrations)))
					return nil
				}

				if !noSnapshot {
					filename, err := app.Manager().CreateSnapshot(ctx, label)
					if err != nil {
						return err
					}
					result.Snapshot = filename
				}

				applied, err := ledger.Apply(ctx, app.Database(), pending)
				result.Applied = nonNil(applied)
				if err != nil {
					return err
				}

				if out.Format() != display.FormatTable {
					return out.Render(result, nil)
				}

				if result.Snapshot != "" {
					out.Info("Snapshot written to " + app.Manager().Catalog().Location(result.Snapshot))
				}
				for _, name := range result.Applied {
					out.Success("Applied " + name)
				}
				return nil
			})
		},
	}

	migrateCmd.Flags().StringVarP(&label, "label", "l", preMigrateLabel, "label of the snapshot taken before migrating")
	migrateCmd.Flags().BoolVar(&noSnapshot, "no-snapshot", false, "apply migrations without taking a snapshot first")
	return migrateCmd
}
