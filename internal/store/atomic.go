package store

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// WriteFileAtomic writes data to path using the temp-file, fsync, rename
// pattern. On any failure the previous content of path is left in place and the
// temp file is removed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()

	fail := func(err error, msg string) error {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, msg)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err, "writing temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err, "setting temp file mode")
	}
	if err := tmp.Sync(); err != nil {
		return fail(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "renaming temp file")
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash.
// Platforms that cannot open directories for sync are tolerated.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
