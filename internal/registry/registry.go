// Package registry holds the forward migration steps of the build and
// computes the chain of steps between two schema versions.
//
// Each version has at most one successor, so the registry is an index keyed by
// source version and path resolution is a linear walk.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// StepID returns the display identifier for a step between two versions.
func StepID(from, to version.Version) string {
	return fmt.Sprintf("v%s-to-v%s", from, to)
}

// NewStep builds a MigrationStep between two version strings, deriving its ID.
// Panics if either version is malformed; steps are declared statically.
func NewStep(from, to string, fn types.TransformFunc) types.MigrationStep {
	f, t := version.MustParse(from), version.MustParse(to)
	return types.MigrationStep{
		ID:          StepID(f, t),
		FromVersion: f.String(),
		ToVersion:   t.String(),
		Transform:   fn,
	}
}

type entry struct {
	step types.MigrationStep
	from version.Version
	to   version.Version
}

// Registry is safe for concurrent use. Steps are expected to be registered once
// at startup and never mutated.
type Registry struct {
	mu       sync.RWMutex
	baseline version.Version
	byFrom   map[string]entry
	ids      map[string]bool
}

// New returns an empty registry whose oldest known version is baseline.
func New(baseline version.Version) *Registry {
	return &Registry{
		baseline: baseline,
		byFrom:   make(map[string]entry),
		ids:      make(map[string]bool),
	}
}

// Register adds a step. Returns ErrDuplicateStep if a step already exists for
// step.FromVersion or step.ID is taken, ErrInvalidStep if the step does not
// move forward or has no transform.
func (r *Registry) Register(step types.MigrationStep) error {
	from, err := version.Parse(step.FromVersion)
	if err != nil {
		return types.MarkAs(err, types.ErrInvalidStep, "from version")
	}
	to, err := version.Parse(step.ToVersion)
	if err != nil {
		return types.MarkAs(err, types.ErrInvalidStep, "to version")
	}
	if version.Compare(to, from) <= 0 {
		return errors.Wrapf(types.ErrInvalidStep, "%s does not move forward", step.ID)
	}
	if step.Transform == nil {
		return errors.Wrapf(types.ErrInvalidStep, "%s has no transform", step.ID)
	}
	if step.ID == "" {
		step.ID = StepID(from, to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := from.String()
	if existing, ok := r.byFrom[key]; ok {
		return errors.Wrapf(types.ErrDuplicateStep, "%s already registered from %s", existing.step.ID, key)
	}
	if r.ids[step.ID] {
		return errors.Wrapf(types.ErrDuplicateStep, "step id %s already registered", step.ID)
	}
	r.byFrom[key] = entry{step: step, from: from, to: to}
	r.ids[step.ID] = true
	return nil
}

// MustRegister registers every step and panics on the first failure.
func (r *Registry) MustRegister(steps ...types.MigrationStep) *Registry {
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Baseline returns the oldest version the registry knows about.
func (r *Registry) Baseline() version.Version {
	return r.baseline
}

// Latest returns the highest version reachable by any registered step, or the
// baseline when no steps are registered.
func (r *Registry) Latest() version.Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := r.baseline
	for _, e := range r.byFrom {
		if version.Compare(e.to, latest) > 0 {
			latest = e.to
		}
	}
	return latest
}

// Steps returns all registered steps ordered by source version.
func (r *Registry) Steps() []types.MigrationStep {
	r.mu.RLock()
	entries := lo.Values(r.byFrom)
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return version.Compare(entries[i].from, entries[j].from) < 0
	})
	return lo.Map(entries, func(e entry, _ int) types.MigrationStep { return e.step })
}

// ResolvePath returns the ordered steps leading from current to target.
// It returns an empty path when the versions are equal and ErrNoMigrationPath
// for downgrades, gaps in the chain, or a step that passes the target.
func (r *Registry) ResolvePath(current, target version.Version) ([]types.MigrationStep, error) {
	cmp := version.Compare(current, target)
	if cmp == 0 {
		return []types.MigrationStep{}, nil
	}
	if cmp > 0 {
		return nil, errors.Wrapf(types.ErrNoMigrationPath, "downgrade from %s to %s is not supported", current, target)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var path []types.MigrationStep
	for version.Compare(current, target) < 0 {
		e, ok := r.byFrom[current.String()]
		if !ok {
			return nil, errors.Wrapf(types.ErrNoMigrationPath, "no step registered from %s towards %s", current, target)
		}
		if version.Compare(e.to, target) > 0 {
			return nil, errors.Wrapf(types.ErrNoMigrationPath, "step %s passes target %s", e.step.ID, target)
		}
		path = append(path, e.step)
		current = e.to
	}
	return path, nil
}

// PathIDs returns the step identifiers of a resolved path.
func PathIDs(steps []types.MigrationStep) types.MigrationPath {
	return lo.Map(steps, func(s types.MigrationStep, _ int) string { return s.ID })
}
