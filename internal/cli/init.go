package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/checklist/internal/paths"
	"github.com/mesh-intelligence/checklist/internal/schema"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the progress file",
		Long: "Create the configuration directory with a default config.yaml, then create\n" +
			"an empty progress file at the baseline schema version. Existing files are kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}
}

func runInit(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return withCode(exitSysError, errors.Wrap(err, "resolve config dir"))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return withCode(exitSysError, errors.Wrap(err, "create config directory"))
	}
	dataDir := flags.dataDir
	if dataDir != "" {
		if dataDir, err = filepath.Abs(dataDir); err != nil {
			return withCode(exitSysError, errors.Wrap(err, "resolve data dir"))
		}
	}
	configPath := paths.ConfigFile(configDir)
	wroteConfig, err := writeConfigIfMissing(configPath, dataDir)
	if err != nil {
		return withCode(exitSysError, err)
	}

	var created bool
	err = withEngine(cmd, flags, func(s *session) error {
		var err error
		created, err = s.engine.InitState(cmd.Context(), schema.Empty())
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, map[string]any{
			"config_file":    configPath,
			"config_written": wroteConfig,
			"state_created":  created,
		})
	}
	if wroteConfig {
		fmt.Fprintf(out, "wrote %s\n", configPath)
	}
	if created {
		success(out, fmt.Sprintf("checklist initialized at schema %s", schema.Baseline))
	} else {
		success(out, "checklist already initialized")
	}
	return nil
}
