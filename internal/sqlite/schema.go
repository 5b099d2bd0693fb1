// Package sqlite implements the backup catalog: SQLite is the query engine and
// backups.jsonl is the source of truth.
package sqlite

// Schema DDL for the catalog.
const (
	createBackups = `CREATE TABLE backups (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    locator TEXT NOT NULL UNIQUE,
    version TEXT NOT NULL,
    created_at TEXT NOT NULL,
    created_ns INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    compression TEXT NOT NULL
);`

	idxBackupsCreated = `CREATE INDEX idx_backups_created ON backups(created_ns, seq);`
	idxBackupsVersion = `CREATE INDEX idx_backups_version ON backups(version);`
)

// schemaDDL lists all statements executed on a fresh catalog database.
var schemaDDL = []string{
	createBackups,
	idxBackupsCreated,
	idxBackupsVersion,
}
