package types

import "time"

// BackupRecord is immutable metadata describing a point-in-time snapshot of
// persisted state. Locator is an opaque handle accepted by restore.
type BackupRecord struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Locator     string    `json:"locator"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	Compression string    `json:"compression"`
}
