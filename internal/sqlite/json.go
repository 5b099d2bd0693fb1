package sqlite

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// backupJSON is one line of backups.jsonl.
type backupJSON struct {
	Locator     string `json:"locator"`
	Version     string `json:"version"`
	CreatedAt   string `json:"created_at"`
	SizeBytes   int64  `json:"size_bytes"`
	Checksum    string `json:"checksum"`
	Compression string `json:"compression"`
}

func toBackupJSON(r types.BackupRecord) backupJSON {
	return backupJSON{
		Locator:     r.Locator,
		Version:     r.Version,
		CreatedAt:   r.Timestamp.UTC().Format(time.RFC3339Nano),
		SizeBytes:   r.SizeBytes,
		Checksum:    r.Checksum,
		Compression: r.Compression,
	}
}

func (b backupJSON) record() (types.BackupRecord, error) {
	ts, err := time.Parse(time.RFC3339Nano, b.CreatedAt)
	if err != nil {
		return types.BackupRecord{}, errors.Wrapf(err, "parsing created_at of %s", b.Locator)
	}
	compression := b.Compression
	if compression == "" {
		compression = types.CompressionNone
	}
	return types.BackupRecord{
		Version:     b.Version,
		Timestamp:   ts.UTC(),
		Locator:     b.Locator,
		SizeBytes:   b.SizeBytes,
		Checksum:    b.Checksum,
		Compression: compression,
	}, nil
}
