package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// CatalogFile is the JSONL source of truth inside the backup directory.
const CatalogFile = "backups.jsonl"

// Catalog lifecycle errors.
var (
	ErrCatalogDetached = errors.New("catalog is detached")
	ErrAlreadyAttached = errors.New("catalog is already attached")
	ErrDuplicateRecord = errors.New("backup record already exists")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Version string
	Limit   int
}

// Catalog indexes backup records. Records are loaded from backups.jsonl on
// Attach into an in-memory SQLite database; an insert is reported only once
// its line is appended to the file.
type Catalog struct {
	mu       sync.RWMutex
	attached bool
	dir      string
	db       *sql.DB
	log      *zap.Logger

	beforeWrite func() // test hook, runs just before the file write
}

// NewCatalog creates a detached catalog.
func NewCatalog(log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{log: log.Named("catalog")}
}

// Attach opens the catalog for the backup directory dir, creating it if
// needed, and loads backups.jsonl.
func (c *Catalog) Attach(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attached {
		return ErrAlreadyAttached
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating backup directory")
	}

	// Each in-memory connection is its own database; pin the pool to one.
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return errors.Wrap(err, "opening catalog database")
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return errors.Wrap(err, "creating catalog schema")
		}
	}

	n, err := loadJSONL(db, filepath.Join(dir, CatalogFile), c.log)
	if err != nil {
		db.Close()
		return errors.Wrap(err, "loading catalog")
	}

	c.db = db
	c.dir = dir
	c.attached = true
	c.log.Debug("catalog attached", zap.String("dir", dir), zap.Int("records", n))
	return nil
}

// Detach releases the database. Detach is idempotent.
func (c *Catalog) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.attached = false
	return err
}

// Insert adds rec and appends its line to the catalog file. Lines already in
// the file are written back unchanged, including ones this build could not
// load. The record is visible only if the file write succeeds.
func (c *Catalog) Insert(ctx context.Context, rec types.BackupRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		return ErrCatalogDetached
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Past this point the insert is not cancellable.
	ctx = context.WithoutCancel(ctx)

	line, err := json.Marshal(toBackupJSON(rec))
	if err != nil {
		return errors.Wrap(err, "encoding backup record")
	}
	path := filepath.Join(c.dir, CatalogFile)
	lines, err := readLines(path)
	if err != nil {
		return errors.Wrap(err, "reading catalog")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning insert")
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, insertBackupSQL, insertArgs(rec)...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errors.Wrapf(ErrDuplicateRecord, "%s", rec.Locator)
		}
		return errors.Wrap(err, "inserting backup record")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing backup record")
	}

	if c.beforeWrite != nil {
		c.beforeWrite()
	}
	if err := writeJSONL(path, append(lines, line)); err != nil {
		if _, derr := c.db.ExecContext(ctx, "DELETE FROM backups WHERE locator = ?", rec.Locator); derr != nil {
			c.log.Warn("dropping unpersisted record", zap.String("locator", rec.Locator), zap.Error(derr))
		}
		return errors.Wrap(err, "persisting catalog")
	}
	return nil
}

// Get returns the record for locator. Returns types.ErrBackupNotFound if no
// such record exists.
func (c *Catalog) Get(ctx context.Context, locator string) (types.BackupRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.attached {
		return types.BackupRecord{}, ErrCatalogDetached
	}
	records, err := queryRecords(ctx, c.db, "SELECT "+recordColumns+" FROM backups WHERE locator = ?", locator)
	if err != nil {
		return types.BackupRecord{}, err
	}
	if len(records) == 0 {
		return types.BackupRecord{}, errors.Wrapf(types.ErrBackupNotFound, "%q", locator)
	}
	return records[0], nil
}

// List returns records newest first; records created at the same instant are
// ordered by reverse insertion.
func (c *Catalog) List(ctx context.Context, f Filter) ([]types.BackupRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.attached {
		return nil, ErrCatalogDetached
	}

	query := "SELECT " + recordColumns + " FROM backups"
	var args []any
	if f.Version != "" {
		query += " WHERE version = ?"
		args = append(args, f.Version)
	}
	query += " ORDER BY created_ns DESC, seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return queryRecords(ctx, c.db, query, args...)
}

const recordColumns = "locator, version, created_ns, size_bytes, checksum, compression"

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]types.BackupRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying backups")
	}
	defer rows.Close()

	records := []types.BackupRecord{}
	for rows.Next() {
		var (
			r  types.BackupRecord
			ns int64
		)
		if err := rows.Scan(&r.Locator, &r.Version, &ns, &r.SizeBytes, &r.Checksum, &r.Compression); err != nil {
			return nil, errors.Wrap(err, "scanning backup record")
		}
		r.Timestamp = unixNano(ns)
		records = append(records, r)
	}
	return records, errors.Wrap(rows.Err(), "iterating backups")
}
