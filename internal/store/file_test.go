package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "progress.json"), nil)
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStateNotFound), "got %v", err)
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.json")
	s := NewFileStore(path, nil)

	require.NoError(t, s.Save(ctx, []byte(`{"version":"1.0.0"}`)))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(got))

	require.NoError(t, s.Save(ctx, []byte(`{"version":"1.1.0"}`)))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.1.0"}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "progress.json")
	s := NewFileStore(path, nil)

	assert.ErrorIs(t, s.Save(ctx, []byte(`{}`)), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SaveCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.json")
	s := NewFileStore(path, nil)

	require.NoError(t, s.Save(ctx, []byte(`{"version":"1.0.0"}`)))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(got))
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "file.json")
	err := WriteFileAtomic(path, []byte("x"), 0o644)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
