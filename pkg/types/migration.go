package types

import "context"

// TransformFunc rewrites a persisted state blob written at one schema version
// into the next. It must not retain or mutate its input.
type TransformFunc func(ctx context.Context, blob []byte) ([]byte, error)

// MigrationStep is a registered forward transform between two adjacent schema
// versions. ID is stable and used for display, e.g. "v1.0.0-to-v1.0.1".
type MigrationStep struct {
	ID          string
	FromVersion string
	ToVersion   string
	Transform   TransformFunc
}

// MigrationPath is the ordered list of step IDs connecting a current version
// to a target version. It is empty when the two are equal.
type MigrationPath []string

// MigrationStatus is derived from the persisted state and the registry; it is
// never persisted.
type MigrationStatus struct {
	NeedsMigration bool          `json:"needs_migration"`
	CurrentVersion string        `json:"current_version"`
	TargetVersion  string        `json:"target_version"`
	MigrationPath  MigrationPath `json:"migration_path"`
}

// RunState is a state of the migration runner.
type RunState string

// Runner states. UpToDate, DryRun and Completed are terminal; Failed is
// terminal for the run, after which the caller may restore a backup.
const (
	RunStateIdle           RunState = "IDLE"
	RunStateChecking       RunState = "CHECKING"
	RunStateUpToDate       RunState = "UP_TO_DATE"
	RunStateNeedsMigration RunState = "NEEDS_MIGRATION"
	RunStateDryRun         RunState = "DRY_RUN"
	RunStateBackingUp      RunState = "BACKING_UP"
	RunStateApplying       RunState = "APPLYING"
	RunStateCompleted      RunState = "COMPLETED"
	RunStateFailed         RunState = "FAILED"
)

// Terminal reports whether no further transition leaves s.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateUpToDate, RunStateDryRun, RunStateCompleted, RunStateFailed:
		return true
	}
	return false
}
