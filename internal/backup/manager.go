// Package backup snapshots persisted state before destructive operations,
// lists the archived snapshots, and restores from one.
//
// Snapshots are immutable files in the backup directory; their metadata lives
// in the catalog (see internal/sqlite). The archive is append-only here:
// pruning is left to an external retention policy.
package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/internal/sqlite"
	"github.com/mesh-intelligence/checklist/internal/store"
	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// Manager creates, lists, verifies, and restores snapshots.
type Manager struct {
	dir         string
	compression string
	store       types.StateStore
	log         *zap.Logger
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCompression selects the snapshot codec (types.CompressionNone or
// types.CompressionZstd).
func WithCompression(c string) Option {
	return func(m *Manager) {
		if c != "" {
			m.compression = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager archiving into dir and restoring through st.
func NewManager(dir string, st types.StateStore, opts ...Option) *Manager {
	m := &Manager{
		dir:         dir,
		compression: types.CompressionNone,
		store:       st,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.Named("backup")
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// CreateBackup writes an immutable snapshot of blob tagged with its version.
// Every failure is marked ErrBackupFailed; nothing else is touched.
func (m *Manager) CreateBackup(ctx context.Context, blob []byte) (types.BackupRecord, error) {
	rec, err := m.createBackup(ctx, blob)
	if err != nil {
		m.log.Warn("backup failed", zap.Error(err))
		return types.BackupRecord{}, types.MarkAs(err, types.ErrBackupFailed, "create backup")
	}
	m.log.Info("backup created",
		zap.String("locator", rec.Locator),
		zap.String("version", rec.Version),
		zap.String("size", humanize.IBytes(uint64(rec.SizeBytes))))
	return rec, nil
}

func (m *Manager) createBackup(ctx context.Context, blob []byte) (types.BackupRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.BackupRecord{}, err
	}
	v, err := version.Of(blob)
	if err != nil {
		return types.BackupRecord{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return types.BackupRecord{}, errors.Wrap(err, "generating backup id")
	}
	rec := types.BackupRecord{
		Version:     v.String(),
		Timestamp:   m.now().UTC(),
		Locator:     "backup-v" + v.String() + "-" + id.String() + extension(m.compression),
		SizeBytes:   int64(len(blob)),
		Checksum:    checksum(blob),
		Compression: m.compression,
	}

	data, err := encode(blob, m.compression)
	if err != nil {
		return types.BackupRecord{}, err
	}

	return rec, m.withCatalog(func(c *sqlite.Catalog) error {
		path := filepath.Join(m.dir, rec.Locator)
		if err := store.WriteFileAtomic(path, data, 0o444); err != nil {
			return errors.Wrap(err, "writing snapshot")
		}
		if err := c.Insert(ctx, rec); err != nil {
			// An unindexed snapshot is invisible to restore; drop it.
			os.Remove(path)
			return errors.Wrap(err, "recording snapshot")
		}
		return nil
	})
}

// ListBackups returns every known record, newest first.
func (m *Manager) ListBackups(ctx context.Context) ([]types.BackupRecord, error) {
	var out []types.BackupRecord
	err := m.withCatalog(func(c *sqlite.Catalog) error {
		var err error
		out, err = c.List(ctx, sqlite.Filter{})
		return err
	})
	return out, err
}

// Lookup returns the record for locator.
func (m *Manager) Lookup(ctx context.Context, locator string) (types.BackupRecord, error) {
	if err := validLocator(locator); err != nil {
		return types.BackupRecord{}, err
	}
	var rec types.BackupRecord
	err := m.withCatalog(func(c *sqlite.Catalog) error {
		var err error
		rec, err = c.Get(ctx, locator)
		return err
	})
	return rec, err
}

// ReadSnapshot loads and verifies the snapshot for locator, returning the
// original blob. Returns ErrBackupNotFound or ErrBackupCorruption.
func (m *Manager) ReadSnapshot(ctx context.Context, locator string) (types.BackupRecord, []byte, error) {
	rec, err := m.Lookup(ctx, locator)
	if err != nil {
		return types.BackupRecord{}, nil, err
	}
	blob, err := m.read(rec)
	return rec, blob, err
}

func (m *Manager) read(rec types.BackupRecord) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, rec.Locator))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(types.ErrBackupNotFound, "snapshot file for %q is missing", rec.Locator)
		}
		return nil, errors.Wrapf(err, "reading snapshot %s", rec.Locator)
	}
	blob, err := decode(data, rec.Compression)
	if err != nil {
		return nil, types.MarkAs(err, types.ErrBackupCorruption, "decoding "+rec.Locator)
	}
	if err := verify(rec, blob); err != nil {
		return nil, err
	}
	if _, err := version.Of(blob); err != nil {
		return nil, types.MarkAs(err, types.ErrBackupCorruption, rec.Locator)
	}
	return blob, nil
}

// RestoreFromBackup overwrites the persisted state with the snapshot for
// locator. The snapshot itself is never removed, so a restore can be retried.
func (m *Manager) RestoreFromBackup(ctx context.Context, locator string) error {
	rec, blob, err := m.ReadSnapshot(ctx, locator)
	if err != nil {
		m.log.Warn("restore rejected", zap.String("locator", locator), zap.Error(err))
		return err
	}
	if err := m.store.Save(ctx, blob); err != nil {
		return errors.Wrapf(err, "restoring %s", locator)
	}
	m.log.Info("state restored", zap.String("locator", locator), zap.String("version", rec.Version))
	return nil
}

// withCatalog attaches a catalog for the duration of fn so records written by
// other processes are always visible.
func (m *Manager) withCatalog(fn func(*sqlite.Catalog) error) (err error) {
	c := sqlite.NewCatalog(m.log)
	if err := c.Attach(m.dir); err != nil {
		return err
	}
	defer func() {
		if derr := c.Detach(); err == nil {
			err = derr
		}
	}()
	return fn(c)
}

// validLocator rejects anything that is not a bare snapshot file name.
func validLocator(locator string) error {
	if locator == "" || locator != filepath.Base(locator) || strings.HasPrefix(locator, ".") || locator == sqlite.CatalogFile {
		return errors.Wrapf(types.ErrBackupNotFound, "invalid locator %q", locator)
	}
	return nil
}
