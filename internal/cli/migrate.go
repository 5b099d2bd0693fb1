package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/checklist/internal/backup"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and run progress file migrations",
	}
	cmd.AddCommand(
		newStatusCmd(flags),
		newRunCmd(flags),
		newBackupCmd(flags),
		newBackupsCmd(flags),
		newRestoreCmd(flags),
	)
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current and latest schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, func(s *session) error {
				status, err := s.engine.CheckMigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, status)
				}
				fmt.Fprintf(out, "current version: %s\nlatest version:  %s\n", status.CurrentVersion, status.TargetVersion)
				if !status.NeedsMigration {
					success(out, "up to date")
					return nil
				}
				warning(out, "migration needed: "+strings.Join(status.MigrationPath, " -> "))
				return nil
			})
		},
	}
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		target string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Back up the progress file and migrate it",
		Long: "Back up the progress file, then apply every migration step up to the\n" +
			"target version and save the result once. If a step fails nothing is\n" +
			"written and the backup can be restored with 'checklist migrate restore'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, func(s *session) error {
				if dryRun {
					return runDryRun(cmd, flags, s, target)
				}
				return runMigration(cmd, flags, s, target)
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "target schema version (default: latest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the steps without backing up or writing")
	return cmd
}

func runDryRun(cmd *cobra.Command, flags *rootFlags, s *session, target string) error {
	preview, err := s.engine.DryRunTo(cmd.Context(), target)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, preview)
	}
	if !preview.Status.NeedsMigration {
		success(out, fmt.Sprintf("up to date at %s", preview.Status.CurrentVersion))
		return nil
	}
	fmt.Fprintf(out, "would migrate %s -> %s:\n", preview.Status.CurrentVersion, preview.Status.TargetVersion)
	for i, step := range preview.Steps {
		fmt.Fprintf(out, "  %d. %s (%s -> %s)\n", i+1, step.ID, step.FromVersion, step.ToVersion)
	}
	fmt.Fprintln(out, "dry run: no backup taken, nothing written")
	return nil
}

func runMigration(cmd *cobra.Command, flags *rootFlags, s *session, target string) error {
	res, err := s.engine.RunMigration(cmd.Context(), target)
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if perr := printJSON(out, res); perr != nil && err == nil {
			return perr
		}
	}
	if err != nil {
		if res.Backup == nil {
			return err
		}
		printRestoreHint(cmd.ErrOrStderr(), res.Backup.Locator)
		return withCode(exitRestorable, err)
	}
	if flags.jsonMode {
		return nil
	}

	if res.State == types.RunStateUpToDate {
		success(out, "already up to date")
		return nil
	}
	to := s.engine.Project().Registry.Latest().String()
	if target != "" {
		to = strings.TrimPrefix(target, "v")
	}
	success(out, fmt.Sprintf("migrated %s -> %s (%d steps)", res.Backup.Version, to, len(res.Applied)))
	fmt.Fprintf(out, "backup: %s\n", res.Backup.Locator)
	return nil
}

// printRestoreHint tells the user that a failed run left restorable data.
func printRestoreHint(w io.Writer, locator string) {
	failure(w, "migration failed; the progress file was not modified")
	fmt.Fprintf(w, "your data was backed up before the attempt to %s\n", locator)
	fmt.Fprintf(w, "restore it with: checklist migrate restore %s\n", locator)
}

func newBackupCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the progress file without migrating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, func(s *session) error {
				rec, err := s.engine.CreateBackupOnly(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, rec)
				}
				success(out, "backup created: "+rec.Locator)
				fmt.Fprintf(out, "version %s, %s\n", rec.Version, humanize.IBytes(uint64(rec.SizeBytes)))
				return nil
			})
		},
	}
}

// verifyJSON is the --json form of a verification result.
type verifyJSON struct {
	types.BackupRecord
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func newBackupsCmd(flags *rootFlags) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, func(s *session) error {
				if verify {
					return runVerify(cmd, flags, s)
				}
				records, err := s.engine.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "no backups")
					return nil
				}
				for _, rec := range records {
					fmt.Fprintf(out, "%-60s  %-8s  %10s  %s\n",
						rec.Locator, rec.Version, humanize.IBytes(uint64(rec.SizeBytes)), humanize.Time(rec.Timestamp))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check every snapshot against its size and checksum")
	return cmd
}

func runVerify(cmd *cobra.Command, flags *rootFlags, s *session) error {
	results, err := s.engine.VerifyBackups(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	bad := lo.Filter(results, func(r backup.VerifyResult, _ int) bool { return !r.OK() })

	if flags.jsonMode {
		if err := printJSON(out, lo.Map(results, func(r backup.VerifyResult, _ int) verifyJSON {
			v := verifyJSON{BackupRecord: r.Record, OK: r.OK()}
			if r.Err != nil {
				v.Error = r.Err.Error()
			}
			return v
		})); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.OK() {
				success(out, "ok      "+r.Record.Locator)
			} else {
				failure(out, fmt.Sprintf("failed  %s: %v", r.Record.Locator, r.Err))
			}
		}
	}

	if len(bad) > 0 {
		return errors.Wrapf(types.ErrBackupCorruption, "%d of %d backups failed verification", len(bad), len(results))
	}
	return nil
}

func newRestoreCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <locator>",
		Short: "Replace the progress file with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator := args[0]
			return withEngine(cmd, flags, func(s *session) error {
				if err := s.engine.RestoreFromBackup(cmd.Context(), locator); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, map[string]string{"restored": locator})
				}
				success(out, "restored "+locator)
				return nil
			})
		},
	}
}
