package migration

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// memStore is an in-memory StateStore that counts calls.
type memStore struct {
	mu    sync.Mutex
	blob  []byte
	loads int
	saves int
}

func newMemStore(blob string) *memStore {
	s := &memStore{}
	if blob != "" {
		s.blob = []byte(blob)
	}
	return s
}

func (s *memStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.blob == nil {
		return nil, errors.Wrap(types.ErrStateNotFound, "memory")
	}
	return append([]byte(nil), s.blob...), nil
}

func (s *memStore) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.blob = append([]byte(nil), blob...)
	s.saves++
	return nil
}

func (s *memStore) snapshot() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.blob), s.saves
}

// failingStore loads normally but rejects every Save.
type failingStore struct {
	memStore
	attempts int
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Save(context.Context, []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return errDiskFull
}
