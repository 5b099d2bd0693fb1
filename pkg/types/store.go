package types

import "context"

// StateStore persists the versioned state blob. The engine consumes it but
// never implements the byte-level I/O itself.
type StateStore interface {
	// Load returns the persisted blob. Returns ErrStateNotFound when nothing
	// has been persisted yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the persisted blob. It either fully succeeds or leaves the
	// previous content in place; partial writes are not acceptable.
	Save(ctx context.Context, blob []byte) error
}
