package migration

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// transitions lists the legal edges of the run state machine.
var transitions = map[types.RunState][]types.RunState{
	types.RunStateIdle:           {types.RunStateChecking},
	types.RunStateChecking:       {types.RunStateUpToDate, types.RunStateNeedsMigration, types.RunStateFailed},
	types.RunStateNeedsMigration: {types.RunStateDryRun, types.RunStateBackingUp},
	types.RunStateBackingUp:      {types.RunStateApplying, types.RunStateFailed},
	types.RunStateApplying:       {types.RunStateCompleted, types.RunStateFailed},
}

// Runner tracks the state of a single migration run. A Runner is not reused.
type Runner struct {
	state          *atomic.String
	backupFinished *atomic.Bool

	mu      sync.Mutex
	history []types.RunState
	log     *zap.Logger
}

func newRunner(log *zap.Logger) *Runner {
	return &Runner{
		state:          atomic.NewString(string(types.RunStateIdle)),
		backupFinished: atomic.NewBool(false),
		history:        []types.RunState{types.RunStateIdle},
		log:            log,
	}
}

// State returns the current state.
func (r *Runner) State() types.RunState {
	return types.RunState(r.state.Load())
}

// BackupFinished reports whether the pre-run snapshot was written.
func (r *Runner) BackupFinished() bool {
	return r.backupFinished.Load()
}

// Transitions returns the states visited so far, in order.
func (r *Runner) Transitions() []types.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.RunState(nil), r.history...)
}

func (r *Runner) to(next types.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.State()
	if !lo.Contains(transitions[cur], next) {
		return errors.AssertionFailedf("illegal run transition %s -> %s", cur, next)
	}
	r.state.Store(string(next))
	r.history = append(r.history, next)
	r.log.Debug("run state", zap.String("from", string(cur)), zap.String("to", string(next)))
	return nil
}

// fail moves the run to FAILED if the current state allows it. A run that
// never started checking stays IDLE.
func (r *Runner) fail() {
	if lo.Contains(transitions[r.State()], types.RunStateFailed) {
		_ = r.to(types.RunStateFailed)
	}
}
