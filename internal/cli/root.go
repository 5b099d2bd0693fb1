// Package cli implements the checklist command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
)

// Exit codes. A run that fails after its backup was written exits with
// exitRestorable so scripts can tell that a restore is possible.
const (
	exitSuccess    = 0
	exitUserError  = 1
	exitRestorable = 2
	exitSysError   = 3
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// codedError carries the process exit code for an error returned by a
// command.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// NewRootCmd creates the top-level "checklist" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "checklist",
		Short: "Manage the checklist progress file",
		Long: "checklist keeps the progress file on the current schema version.\n" +
			"It reports pending migrations, runs them behind a backup, and restores backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .checklist)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newMigrateCmd(flags))

	return root
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if os.Getenv("NO_COLOR") != "" {
		ansi.DisableColors(true)
	}
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, ansi.Color("Error: "+err.Error(), "red"))

	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	// Flag and argument errors from cobra.
	return exitUserError
}

// Execute runs the root command against the process arguments.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}
