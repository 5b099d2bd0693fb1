package version

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// FieldName is the top-level key holding the schema version in a persisted
// state blob.
const FieldName = "version"

// TargetSource reports the highest version the running build implements.
// The migration registry satisfies it.
type TargetSource interface {
	Latest() Version
}

// Resolver reads the current schema version out of persisted state and
// reports the target version of the build.
type Resolver struct {
	store  types.StateStore
	target TargetSource
}

// NewResolver returns a Resolver over the given store and target source.
func NewResolver(store types.StateStore, target TargetSource) *Resolver {
	return &Resolver{store: store, target: target}
}

// CurrentVersion loads the persisted blob and returns its version. Returns
// ErrStateCorruption if the version field is missing or unparsable.
func (r *Resolver) CurrentVersion(ctx context.Context) (Version, error) {
	blob, err := r.store.Load(ctx)
	if err != nil {
		return Version{}, err
	}
	return Of(blob)
}

// TargetVersion returns the highest version known to the registry.
func (r *Resolver) TargetVersion() Version {
	return r.target.Latest()
}

// Of extracts the version from a state blob without decoding the rest of it.
func Of(blob []byte) (Version, error) {
	if !gjson.ValidBytes(blob) {
		return Version{}, errors.Wrap(types.ErrStateCorruption, "state is not valid JSON")
	}
	field := gjson.GetBytes(blob, FieldName)
	if !field.Exists() {
		return Version{}, errors.Wrap(types.ErrStateCorruption, "state has no version field")
	}
	if field.Type != gjson.String {
		return Version{}, errors.Wrapf(types.ErrStateCorruption, "version field is %s, want string", field.Type)
	}
	v, err := Parse(field.String())
	if err != nil {
		return Version{}, types.MarkAs(err, types.ErrStateCorruption, "state version")
	}
	return v, nil
}
