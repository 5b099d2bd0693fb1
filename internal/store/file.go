// Package store provides the file-backed state store for the checklist
// progress file and the atomic write primitive shared by other packages.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

var _ types.StateStore = (*FileStore)(nil)

// FileStore keeps the state blob in a single file. Save replaces the file
// atomically so a reader never observes a partial write.
type FileStore struct {
	Path string
	log  *zap.Logger
}

// NewFileStore returns a store for the file at path.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{Path: path, log: log.Named("store")}
}

// Load reads the whole state file. Returns ErrStateNotFound if it does not
// exist.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(types.ErrStateNotFound, "%s", s.Path)
		}
		return nil, errors.Wrapf(err, "reading %s", s.Path)
	}
	return data, nil
}

// Save atomically replaces the state file with blob, creating its directory
// if needed.
func (s *FileStore) Save(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return errors.Wrap(err, "creating state directory")
	}
	if err := WriteFileAtomic(s.Path, blob, 0o644); err != nil {
		return err
	}
	s.log.Debug("state saved", zap.String("path", s.Path), zap.Int("bytes", len(blob)))
	return nil
}
