package backup

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// checksum returns the hex xxh3 digest of the uncompressed blob.
func checksum(blob []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(blob))
}

// extension returns the snapshot file suffix for a compression codec.
func extension(compression string) string {
	if compression == types.CompressionZstd {
		return ".json.zst"
	}
	return ".json"
}

// encode prepares blob for writing under the given codec.
func encode(blob []byte, compression string) ([]byte, error) {
	switch compression {
	case types.CompressionNone, "":
		return blob, nil
	case types.CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd encoder")
		}
		defer enc.Close()
		return enc.EncodeAll(blob, make([]byte, 0, len(blob)/2)), nil
	default:
		return nil, errors.Wrapf(types.ErrCompressionUnknown, "%q", compression)
	}
}

// decode reverses encode.
func decode(data []byte, compression string) ([]byte, error) {
	switch compression {
	case types.CompressionNone, "":
		return data, nil
	case types.CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd decoder")
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, errors.Wrapf(types.ErrCompressionUnknown, "%q", compression)
	}
}

// verify checks a decoded snapshot against its record.
func verify(rec types.BackupRecord, blob []byte) error {
	if int64(len(blob)) != rec.SizeBytes {
		return errors.Wrapf(types.ErrBackupCorruption, "%s: size %d, want %d", rec.Locator, len(blob), rec.SizeBytes)
	}
	if got := checksum(blob); got != rec.Checksum {
		return errors.Wrapf(types.ErrBackupCorruption, "%s: checksum %s, want %s", rec.Locator, got, rec.Checksum)
	}
	return nil
}
