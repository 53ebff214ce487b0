package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"db-snapshot/internal/application"
	"db-snapshot/internal/confirmation"
	"db-snapshot/internal/display"
	"db-snapshot/internal/snapshot"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newSnapshotCommand(opts *globalOptions) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create, list, rotate and inspect database snapshots",
		Long: `Manage JSON snapshots of the application database.

A snapshot holds every row of every user table plus a _metadata member with
the creation time, label and counts. Files are named <label>_<timestamp>.json
and live in the snapshot directory below the documents root.`,
	}

	snapshotCmd.AddCommand(newSnapshotCreateCommand(opts))
	snapshotCmd.AddCommand(newSnapshotListCommand(opts))
	snapshotCmd.AddCommand(newSnapshotRotateCommand(opts))
	snapshotCmd.AddCommand(newSnapshotInspectCommand(opts))
	return snapshotCmd
}

// createResult is the structured output of snapshot create
type createResult struct {
	Filename       string   `json:"filename" yaml:"filename"`
	Location       string   `json:"location" yaml:"location"`
	Deleted        []string `json:"deleted" yaml:"deleted"`
	RotationFailed []string `json:"rotation_failed,omitempty" yaml:"rotation_failed,omitempty"`
}

func newSnapshotCreateCommand(opts *globalOptions) *cobra.Command {
	var (
		label    string
		keep     int
		noRotate bool
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new snapshot, then rotate old ones",
		Long: `Export every user table into a new snapshot file. Afterwards the oldest
snapshots beyond --keep are deleted; deletion problems are reported but do not
fail the command.

Examples:
  # Snapshot with the default label
  db-snapshot snapshot create

  # Snapshot before an upgrade and keep the newest 10
  db-snapshot snapshot create --label pre-upgrade --keep 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApplication(cmd, "snapshot_create", func(ctx context.Context, app *application.Application, out *display.Service) error {
				if !cmd.Flags().Changed("label") {
					label = app.Config().Snapshot.DefaultLabel
				}
				if !cmd.Flags().Changed("keep") {
					keep = app.Config().Snapshot.Keep
				}

				manager := app.Manager()
				var (
					filename string
					report   snapshot.RotationReport
					err      error
				)
				if noRotate {
					filename, err = manager.CreateSnapshot(ctx, label)
				} else {
					filename, report, err = manager.CreateAndRotate(ctx, label, keep)
				}
				if err != nil {
					return err
				}

				result := createResult{
					Filename:       filename,
					Location:       manager.Catalog().Location(filename),
					Deleted:        nonNil(report.Deleted),
					RotationFailed: report.FailedNames(),
				}
				if len(result.RotationFailed) == 0 {
					result.RotationFailed = nil
				}

				if out.Format() != display.FormatTable {
					return out.Render(result, nil)
				}

				out.Success("Snapshot written to " + result.Location)
				reportRotation(out, report)
				return nil
			})
		},
	}

	createCmd.Flags().StringVarP(&label, "label", "l", "", "label used as the filename prefix (default from config, \"auto\")")
	createCmd.Flags().IntVarP(&keep, "keep", "k", snapshot.DefaultKeep, "number of snapshots to retain after writing")
	createCmd.Flags().BoolVar(&noRotate, "no-rotate", false, "do not delete old snapshots")
	return createCmd
}

// listEntry is one row of snapshot list
type listEntry struct {
	Filename     string `json:"filename" yaml:"filename"`
	Location     string `json:"location" yaml:"location"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
	TablesCount  int    `json:"tables_count" yaml:"tables_count"`
	TotalRecords int    `json:"total_records" yaml:"total_records"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newSnapshotListCommand(opts *globalOptions) *cobra.Command {
	var brief bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Long: `List snapshot files ordered by the timestamp in their name, newest first.
Unless --brief is given each file is opened to show its metadata.

Examples:
  db-snapshot snapshot list
  db-snapshot snapshot list --format json
  db-snapshot snapshot list --brief`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApplication(cmd, "snapshot_list", func(ctx context.Context, app *application.Application, out *display.Service) error {
				catalog := app.Manager().Catalog()
				names, err := catalog.ListSnapshots(ctx)
				if err != nil {
					return err
				}

				entries := make([]listEntry, 0, len(names))
				for _, name := range names {
					entry := listEntry{Filename: name, Location: catalog.Location(name)}
					if !brief {
						meta, err := catalog.Describe(ctx, name)
						if err != nil {
							entry.Error = err.Error()
						} else {
							entry.CreatedAt = meta.CreatedAt
							entry.Label = meta.Label
							entry.TablesCount = meta.TablesCount
							entry.TotalRecords = meta.TotalRecords
						}
					}
					entries = append(entries, entry)
				}

				if out.Format() == display.FormatTable && len(entries) == 0 {
					out.Info("No snapshots in " + app.Filesystem().Location(catalog.Directory()))
					return nil
				}

				return out.Render(entries, func() *display.Table {
					if brief {
						table := display.NewTable("FILENAME")
						for _, e := range entries {
							table.AddRow(e.Filename)
						}
						return table
					}

					table := display.NewTable("FILENAME", "CREATED", "LABEL", "TABLES", "RECORDS")
					table.SetAlignment(3, display.AlignRight).SetAlignment(4, display.AlignRight)
					for _, e := range entries {
						if e.Error != "" {
							table.AddRow(e.Filename, "unreadable", "", "", "")
							continue
						}
						table.AddRow(e.Filename, e.CreatedAt, e.Label,
							strconv.Itoa(e.TablesCount), strconv.Itoa(e.TotalRecords))
					}
					return table
				})
			})
		},
	}

	listCmd.Flags().BoolVar(&brief, "brief", false, "only list filenames without reading the files")
	return listCmd
}

// rotateResult is the structured output of snapshot rotate
type rotateResult struct {
	Kept    []string `json:"kept" yaml:"kept"`
	Deleted []string `json:"deleted" yaml:"deleted"`
	Failed  []string `json:"failed" yaml:"failed"`
}

func newSnapshotRotateCommand(opts *globalOptions) *cobra.Command {
	var (
		keep   int
		yes    bool
		dryRun bool
	)

	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Delete all but the newest snapshots",
		Long: `Delete the oldest snapshots so that at most --keep remain. Files that
cannot be deleted are reported and skipped. On a terminal the deletion is
confirmed first unless --yes is given.

Examples:
  db-snapshot snapshot rotate
  db-snapshot snapshot rotate --keep 5 --yes
  db-snapshot snapshot rotate --keep 1 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApplication(cmd, "snapshot_rotate", func(ctx context.Context, app *application.Application, out *display.Service) error {
				if !cmd.Flags().Changed("keep") {
					keep = app.Config().Snapshot.Keep
				}
				manager := app.Manager()

				if dryRun || (!yes && stdinIsTerminal(cmd) && out.Format() == display.FormatTable) {
					kept, excess, err := manager.PlanRotation(ctx, keep)
					if err != nil {
						return err
					}

					if dryRun {
						return out.Render(rotateResult{Kept: nonNil(kept), Deleted: nonNil(excess), Failed: []string{}}, func() *display.Table {
							table := display.NewTable("FILENAME", "ACTION")
							for _, name := range kept {
								table.AddRow(name, "keep")
							}
							for _, name := range excess {
								table.AddRow(name, "delete")
							}
							return table
						})
					}

					prompter := confirmation.NewConfirmationService(cmd.InOrStdin(), cmd.ErrOrStderr(), out.Colors())
					approved, err := prompter.ConfirmDeletion(ctx, excess, false)
					if err != nil {
						return err
					}
					if !approved {
						out.Info("Rotation cancelled, nothing deleted")
						return nil
					}
				}

				report := manager.RotateSnapshots(ctx, keep)
				if out.Format() != display.FormatTable {
					return out.Render(rotateResult{
						Kept:    nonNil(report.Kept),
						Deleted: nonNil(report.Deleted),
						Failed:  report.FailedNames(),
					}, nil)
				}

				if len(report.Deleted) == 0 && len(report.Failed) == 0 {
					out.Info(fmt.Sprintf("Nothing to rotate, %d snapshot(s) kept", len(report.Kept)))
					return nil
				}
				reportRotation(out, report)
				return nil
			})
		},
	}

	rotateCmd.Flags().IntVarP(&keep, "keep", "k", snapshot.DefaultKeep, "number of snapshots to retain")
	rotateCmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	rotateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without deleting")
	return rotateCmd
}

// stdinIsTerminal reports whether the command can prompt the operator
var stdinIsTerminal = func(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newSnapshotInspectCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show row counts and migration history of the live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApplication(cmd, "snapshot_inspect", func(ctx context.Context, app *application.Application, out *display.Service) error {
				inspection, err := app.Manager().Inspect(ctx)
				if err != nil {
					return err
				}

				if out.Format() != display.FormatTable {
					return out.Render(inspection, nil)
				}

				out.PrintHeader(fmt.Sprintf("%s database, %d table(s)", inspection.Engine, len(inspection.Tables)))
				if version, err := app.Database().GetVersion(ctx); err == nil {
					out.Muted("Engine version " + version)
				}
				tables := display.NewTable("TABLE", "ROWS")
				tables.SetAlignment(1, display.AlignRight)
				for _, t := range inspection.Tables {
					rows := strconv.FormatInt(t.Rows, 10)
					if t.Error != "" {
						rows = "error"
					}
					tables.AddRow(t.Name, rows)
				}
				tables.RenderTo(out.Writer())

				switch {
				case inspection.MigrationsError != "":
					out.Warning("Migration history unavailable: " + inspection.MigrationsError)
				case len(inspection.Migrations) == 0:
					out.Info("No migrations recorded")
				default:
					migrations := display.NewTable("ID", "NAME", "EXECUTED AT")
					for _, m := range inspection.Migrations {
						migrations.AddRow(strconv.FormatInt(m.ID, 10), m.Name, m.ExecutedAt)
					}
					migrations.RenderTo(out.Writer())
				}

				for _, t := range inspection.Tables {
					if t.Error != "" {
						out.Muted(t.Name + ": " + t.Error)
					}
				}

				latest, ok, err := app.Manager().Latest(ctx)
				switch {
				case err != nil:
					out.Warning("Could not list snapshots: " + err.Error())
				case ok:
					out.Info("Latest snapshot: " + latest)
				default:
					out.Info("No snapshots yet")
				}
				return nil
			})
		},
	}
}

func reportRotation(out *display.Service, report snapshot.RotationReport) {
	if len(report.Deleted) > 0 {
		out.Info(fmt.Sprintf("Rotated away %d old snapshot(s)", len(report.Deleted)))
		for _, name := range report.Deleted {
			out.Muted("  deleted " + name)
		}
	}
	if len(report.Failed) > 0 {
		out.Warning("Could not delete: " + strings.Join(report.FailedNames(), ", "))
	}
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
