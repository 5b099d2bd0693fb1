package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/internal/logging"
	"github.com/mesh-intelligence/checklist/internal/metrics"
	"github.com/mesh-intelligence/checklist/internal/migration"
	"github.com/mesh-intelligence/checklist/internal/schema"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// session is the per-command wiring of config, logger, metrics and engine.
type session struct {
	cfg     types.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	engine  *migration.Engine
}

// userErrors are failures caused by input, configuration or on-disk data
// rather than by the system.
var userErrors = []error{
	types.ErrDataDirEmpty,
	types.ErrStateFileEmpty,
	types.ErrCompressionUnknown,
	types.ErrLockTimeoutInvalid,
	types.ErrLogLevelUnknown,
	types.ErrLogFormatUnknown,
	types.ErrStateCorruption,
	types.ErrStateNotFound,
	types.ErrNoMigrationPath,
	types.ErrInvalidVersion,
	types.ErrBackupFailed,
	types.ErrBackupNotFound,
	types.ErrBackupCorruption,
	types.ErrLockHeld,
}

// withEngine loads the configuration, builds the engine, runs fn and flushes
// metrics. Errors come back carrying an exit code.
func withEngine(cmd *cobra.Command, flags *rootFlags, fn func(*session) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return withCode(exitCodeOf(err), err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return withCode(exitUserError, err)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()
	p, err := migration.OpenProject(cfg, schema.NewRegistry(),
		migration.WithLogger(log),
		migration.WithMetrics(m))
	if err != nil {
		return withCode(exitCodeOf(err), err)
	}

	err = fn(&session{cfg: cfg, log: log, metrics: m, engine: migration.NewEngine(p)})
	if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
		log.Warn("metrics not written", zap.Error(werr))
	}
	if err == nil {
		return nil
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return err
	}
	return withCode(exitCodeOf(err), err)
}

func exitCodeOf(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrMigrationStep):
		return exitRestorable
	case errors.IsAny(err, userErrors...):
		return exitUserError
	default:
		return exitSysError
	}
}
