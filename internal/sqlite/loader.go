package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// loadJSONL reads backups.jsonl and inserts its records into the catalog.
// Loading is transactional: all records load or the catalog stays empty.
// Malformed lines and duplicate locators are skipped and unknown fields are
// ignored. Skipped lines stay in the file; Insert writes them back.
func loadJSONL(db *sql.DB, path string, log *zap.Logger) (int, error) {
	records, err := readJSONL(path)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "beginning load transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertBackupSQL)
	if err != nil {
		return 0, errors.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	loaded := 0
	for _, raw := range records {
		var b backupJSON
		if err := json.Unmarshal(raw, &b); err != nil || b.Locator == "" {
			log.Warn("skipping malformed catalog line", zap.ByteString("line", raw))
			continue
		}
		rec, err := b.record()
		if err != nil {
			log.Warn("skipping catalog line", zap.String("locator", b.Locator), zap.Error(err))
			continue
		}
		if _, err := stmt.Exec(insertArgs(rec)...); err != nil {
			log.Warn("skipping catalog line", zap.String("locator", b.Locator), zap.Error(err))
			continue
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing load transaction")
	}
	return loaded, nil
}

const insertBackupSQL = `INSERT INTO backups
    (locator, version, created_at, created_ns, size_bytes, checksum, compression)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

func insertArgs(rec types.BackupRecord) []any {
	b := toBackupJSON(rec)
	return []any{
		b.Locator,
		b.Version,
		b.CreatedAt,
		rec.Timestamp.UTC().UnixNano(),
		b.SizeBytes,
		b.Checksum,
		b.Compression,
	}
}

// unixNano exists so scans can rebuild timestamps without string parsing.
func unixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
