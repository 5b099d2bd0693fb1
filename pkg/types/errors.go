package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Engine errors. Callers match them with errors.Is; failures that carry an
// underlying cause are marked with the sentinel so the cause chain survives.
var (
	ErrStateCorruption  = errors.New("persisted state is unreadable or missing a version")
	ErrStateNotFound    = errors.New("persisted state does not exist")
	ErrNoMigrationPath  = errors.New("no migration path")
	ErrDuplicateStep    = errors.New("duplicate migration step")
	ErrInvalidStep      = errors.New("invalid migration step")
	ErrInvalidVersion   = errors.New("invalid version")
	ErrBackupFailed     = errors.New("backup failed")
	ErrBackupNotFound   = errors.New("backup not found")
	ErrBackupCorruption = errors.New("backup failed integrity check")
	ErrMigrationStep    = errors.New("migration step failed")
	ErrLockHeld         = errors.New("state lock is held by another operation")
)

// MarkAs wraps cause with msg and marks the result as sentinel. A nil cause
// yields the sentinel wrapped with msg.
func MarkAs(cause error, sentinel error, msg string) error {
	if cause == nil {
		return errors.Wrap(sentinel, msg)
	}
	return errors.Mark(errors.Wrap(cause, msg), sentinel)
}

// MigrationStepError describes a transform that failed during a run. The
// on-disk state is untouched when this error is returned; BackupLocator names
// the snapshot taken before the run.
type MigrationStepError struct {
	StepID        string
	FromVersion   string
	ToVersion     string
	BackupLocator string
	Err           error
}

func (e *MigrationStepError) Error() string {
	return fmt.Sprintf("migration step %s (%s -> %s): %v", e.StepID, e.FromVersion, e.ToVersion, e.Err)
}

func (e *MigrationStepError) Unwrap() error { return e.Err }

// NewMigrationStepError builds a MigrationStepError marked as ErrMigrationStep.
func NewMigrationStepError(step MigrationStep, backupLocator string, cause error) error {
	return errors.Mark(&MigrationStepError{
		StepID:        step.ID,
		FromVersion:   step.FromVersion,
		ToVersion:     step.ToVersion,
		BackupLocator: backupLocator,
		Err:           cause,
	}, ErrMigrationStep)
}
