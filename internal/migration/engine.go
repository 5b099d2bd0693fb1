package migration

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/internal/backup"
	"github.com/mesh-intelligence/checklist/internal/lock"
	"github.com/mesh-intelligence/checklist/internal/metrics"
	"github.com/mesh-intelligence/checklist/internal/registry"
	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// PlannedStep is one step of a previewed run.
type PlannedStep struct {
	ID          string `json:"id"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

// Preview is the outcome of a dry run.
type Preview struct {
	Status types.MigrationStatus `json:"status"`
	Steps  []PlannedStep         `json:"steps"`
}

// Result describes a finished run. Backup is set once the pre-run snapshot
// has been written, even if the run later failed.
type Result struct {
	State       types.RunState      `json:"state"`
	Applied     []string            `json:"applied"`
	Backup      *types.BackupRecord `json:"backup,omitempty"`
	Transitions []types.RunState    `json:"transitions"`
}

// Engine is the entry point for all migration and backup operations on a
// project. It never writes to a console or exits the process.
type Engine struct {
	p *Project
}

// NewEngine returns an Engine for p.
func NewEngine(p *Project) *Engine {
	return &Engine{p: p}
}

// Project returns the engine's project.
func (e *Engine) Project() *Project { return e.p }

// CheckMigrationStatus reports whether the persisted state is behind the
// latest known version. It never mutates anything.
func (e *Engine) CheckMigrationStatus(ctx context.Context) (types.MigrationStatus, error) {
	var status types.MigrationStatus
	err := e.withLock(ctx, lock.Shared, func() error {
		var err error
		status, _, err = e.status(ctx, e.p.Resolver.TargetVersion())
		return err
	})
	return status, err
}

// DryRun previews a run to the latest version without taking a backup or
// writing state.
func (e *Engine) DryRun(ctx context.Context) (Preview, error) {
	return e.DryRunTo(ctx, "")
}

// DryRunTo previews a run to targetVersion. An empty target means latest.
func (e *Engine) DryRunTo(ctx context.Context, targetVersion string) (Preview, error) {
	target, err := e.target(targetVersion)
	if err != nil {
		return Preview{}, err
	}

	r := newRunner(e.p.Log)
	var preview Preview
	err = e.withLock(ctx, lock.Shared, func() error {
		_ = r.to(types.RunStateChecking)
		status, steps, err := e.status(ctx, target)
		if err != nil {
			r.fail()
			return err
		}
		preview = Preview{
			Status: status,
			Steps: lo.Map(steps, func(s types.MigrationStep, _ int) PlannedStep {
				return PlannedStep{ID: s.ID, FromVersion: s.FromVersion, ToVersion: s.ToVersion}
			}),
		}
		if !status.NeedsMigration {
			return r.to(types.RunStateUpToDate)
		}
		if err := r.to(types.RunStateNeedsMigration); err != nil {
			return err
		}
		return r.to(types.RunStateDryRun)
	})
	if err == nil && r.State() == types.RunStateDryRun {
		e.p.Metrics.RunFinished(metrics.OutcomeDryRun, 0)
	}
	return preview, err
}

// RunMigration migrates the persisted state to targetVersion (empty means
// latest). The state is backed up first, every step is applied in memory,
// and the result is saved once. On failure the persisted state is unchanged.
//
// Errors are marked ErrNoMigrationPath, ErrBackupFailed, or ErrMigrationStep.
// The returned Result is meaningful even when err is non-nil.
func (e *Engine) RunMigration(ctx context.Context, targetVersion string) (Result, error) {
	r := newRunner(e.p.Log)
	res := Result{Applied: []string{}}

	target, err := e.target(targetVersion)
	if err == nil {
		err = e.withLock(ctx, lock.Exclusive, func() error {
			return e.run(ctx, r, target, &res)
		})
	}
	if err != nil {
		r.fail()
	}

	res.State = r.State()
	res.Transitions = r.Transitions()
	e.p.Metrics.RunFinished(outcome(res.State), len(res.Applied))
	if err != nil {
		e.p.Log.Warn("migration failed",
			zap.String("state", string(res.State)),
			zap.Bool("backup_finished", r.BackupFinished()),
			zap.Error(err))
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, r *Runner, target version.Version, res *Result) error {
	if err := r.to(types.RunStateChecking); err != nil {
		return err
	}
	blob, err := e.p.Store.Load(ctx)
	if err != nil {
		return err
	}
	current, err := version.Of(blob)
	if err != nil {
		return err
	}
	steps, err := e.p.Registry.ResolvePath(current, target)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		e.p.Log.Info("state is up to date", zap.String("version", current.String()))
		return r.to(types.RunStateUpToDate)
	}
	if err := r.to(types.RunStateNeedsMigration); err != nil {
		return err
	}

	if err := r.to(types.RunStateBackingUp); err != nil {
		return err
	}
	rec, err := e.p.Backups.CreateBackup(ctx, blob)
	if err != nil {
		return err
	}
	r.backupFinished.Store(true)
	res.Backup = &rec
	e.p.Metrics.BackupCreated()

	if err := r.to(types.RunStateApplying); err != nil {
		return err
	}
	e.p.Log.Info("migrating",
		zap.String("from", current.String()),
		zap.String("to", target.String()),
		zap.Strings("path", registry.PathIDs(steps)),
		zap.String("backup", rec.Locator))

	out := blob
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return types.NewMigrationStepError(step, rec.Locator, err)
		}
		if out, err = apply(ctx, step, out); err != nil {
			return types.NewMigrationStepError(step, rec.Locator, err)
		}
		e.p.Log.Debug("step applied", zap.String("step", step.ID))
	}
	applied := registry.PathIDs(steps)

	if err := e.p.Store.Save(ctx, out); err != nil {
		return errors.Wrapf(err, "saving migrated state (backup %s)", rec.Locator)
	}
	res.Applied = applied
	e.p.Log.Info("migration completed", zap.String("version", target.String()), zap.Int("steps", len(applied)))
	return r.to(types.RunStateCompleted)
}

// apply runs one transform and stamps its target version on the output.
func apply(ctx context.Context, step types.MigrationStep, blob []byte) ([]byte, error) {
	// The transform gets a copy; blob may be the snapshot source.
	out, err := step.Transform(ctx, append([]byte(nil), blob...))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(out) {
		return nil, errors.Wrap(types.ErrStateCorruption, "transform produced invalid JSON")
	}
	out, err = sjson.SetBytes(out, version.FieldName, step.ToVersion)
	if err != nil {
		return nil, errors.Wrap(err, "stamping version")
	}
	if _, err := version.Of(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBackupOnly snapshots the current state without migrating.
func (e *Engine) CreateBackupOnly(ctx context.Context) (types.BackupRecord, error) {
	var rec types.BackupRecord
	err := e.withLock(ctx, lock.Exclusive, func() error {
		blob, err := e.p.Store.Load(ctx)
		if err != nil {
			return types.MarkAs(err, types.ErrBackupFailed, "loading state")
		}
		rec, err = e.p.Backups.CreateBackup(ctx, blob)
		return err
	})
	if err == nil {
		e.p.Metrics.BackupCreated()
	}
	return rec, err
}

// ListBackups returns every archived snapshot, newest first.
func (e *Engine) ListBackups(ctx context.Context) ([]types.BackupRecord, error) {
	var out []types.BackupRecord
	err := e.withLock(ctx, lock.Shared, func() error {
		var err error
		out, err = e.p.Backups.ListBackups(ctx)
		return err
	})
	return out, err
}

// RestoreFromBackup replaces the persisted state with the snapshot named by
// locator. Errors are marked ErrBackupNotFound or ErrBackupCorruption.
func (e *Engine) RestoreFromBackup(ctx context.Context, locator string) error {
	err := e.withLock(ctx, lock.Exclusive, func() error {
		return e.p.Backups.RestoreFromBackup(ctx, locator)
	})
	e.p.Metrics.RestoreFinished(err)
	return err
}

// VerifyBackups checks the integrity of every archived snapshot.
func (e *Engine) VerifyBackups(ctx context.Context) ([]backup.VerifyResult, error) {
	var out []backup.VerifyResult
	err := e.withLock(ctx, lock.Shared, func() error {
		var err error
		out, err = e.p.Backups.Verify(ctx)
		return err
	})
	return out, err
}

// InitState writes blob as the persisted state if none exists yet. It reports
// whether the state was created.
func (e *Engine) InitState(ctx context.Context, blob []byte) (bool, error) {
	if _, err := version.Of(blob); err != nil {
		return false, err
	}
	created := false
	err := e.withLock(ctx, lock.Exclusive, func() error {
		_, err := e.p.Store.Load(ctx)
		if err == nil || !errors.Is(err, types.ErrStateNotFound) {
			return err
		}
		if err := e.p.Store.Save(ctx, blob); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// status resolves the current version and the path to target.
func (e *Engine) status(ctx context.Context, target version.Version) (types.MigrationStatus, []types.MigrationStep, error) {
	current, err := e.p.Resolver.CurrentVersion(ctx)
	if err != nil {
		return types.MigrationStatus{}, nil, err
	}
	steps, err := e.p.Registry.ResolvePath(current, target)
	if err != nil {
		return types.MigrationStatus{}, nil, err
	}
	return types.MigrationStatus{
		NeedsMigration: len(steps) > 0,
		CurrentVersion: current.String(),
		TargetVersion:  target.String(),
		MigrationPath:  registry.PathIDs(steps),
	}, steps, nil
}

// target parses an explicit target or defaults to the latest version.
func (e *Engine) target(s string) (version.Version, error) {
	if s == "" {
		return e.p.Resolver.TargetVersion(), nil
	}
	return version.Parse(s)
}

func (e *Engine) withLock(ctx context.Context, mode lock.Mode, fn func() error) (err error) {
	release, err := e.p.Lock.Acquire(ctx, mode)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); err == nil && rerr != nil {
			err = errors.Wrap(rerr, "releasing project lock")
		}
	}()
	return fn()
}

func outcome(s types.RunState) string {
	switch s {
	case types.RunStateUpToDate:
		return metrics.OutcomeUpToDate
	case types.RunStateCompleted:
		return metrics.OutcomeCompleted
	default:
		return metrics.OutcomeFailed
	}
}
