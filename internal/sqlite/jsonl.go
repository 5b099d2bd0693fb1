package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/checklist/internal/store"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped. A missing file yields no
// records.
func readJSONL(path string) ([]json.RawMessage, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	for _, line := range lines {
		if json.Valid(line) {
			records = append(records, line)
		}
	}
	return records, nil
}

// readLines returns every non-empty line of path verbatim, parseable or not.
func readLines(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var lines []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scanning %s", path)
	}
	return lines, nil
}

// writeJSONL atomically replaces path with one record per line.
func writeJSONL(path string, records []json.RawMessage) error {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(rec)
		buf.WriteByte('\n')
	}
	return store.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
