// Package lock serializes engine operations on one project. Mutating
// operations hold the lock exclusively; read-only operations share it.
// The lock spans goroutines (sync.RWMutex) and processes (flock on a file
// next to the state file).
package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// FileName is the lock file created in the state file's directory.
const FileName = ".checklist.lock"

// retryDelay is the polling interval while waiting for the file lock.
const retryDelay = 25 * time.Millisecond

// Mode selects shared or exclusive access.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Lock guards one project directory.
type Lock struct {
	path    string
	timeout time.Duration
	mu      sync.RWMutex
}

// New returns a Lock backed by dir/FileName. A non-positive timeout waits
// until ctx is done.
func New(dir string, timeout time.Duration) *Lock {
	return &Lock{path: filepath.Join(dir, FileName), timeout: timeout}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock in the given mode and returns the release function.
// Returns ErrLockHeld when the lock could not be taken before the timeout.
func (l *Lock) Acquire(ctx context.Context, mode Mode) (func() error, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.lockLocal(ctx, mode); err != nil {
		return nil, err
	}
	unlockLocal := func() {
		if mode == Exclusive {
			l.mu.Unlock()
		} else {
			l.mu.RUnlock()
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		unlockLocal()
		return nil, errors.Wrap(err, "creating lock directory")
	}

	// A fresh Flock per acquisition gives each holder its own descriptor, so
	// shared holders release independently.
	fl := flock.New(l.path)
	var (
		ok  bool
		err error
	)
	if mode == Exclusive {
		ok, err = fl.TryLockContext(ctx, retryDelay)
	} else {
		ok, err = fl.TryRLockContext(ctx, retryDelay)
	}
	if err != nil || !ok {
		unlockLocal()
		if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, types.MarkAs(err, types.ErrLockHeld, mode.String()+" lock on "+l.path)
		}
		return nil, errors.Wrapf(err, "locking %s", l.path)
	}

	var once sync.Once
	return func() error {
		var uerr error
		once.Do(func() {
			uerr = fl.Unlock()
			unlockLocal()
		})
		return uerr
	}, nil
}

// lockLocal takes the in-process side of the lock, giving up when ctx is done.
func (l *Lock) lockLocal(ctx context.Context, mode Mode) error {
	try := l.mu.TryRLock
	if mode == Exclusive {
		try = l.mu.TryLock
	}
	if try() {
		return nil
	}
	ticker := time.NewTicker(retryDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return types.MarkAs(ctx.Err(), types.ErrLockHeld, mode.String()+" lock on "+l.path)
		case <-ticker.C:
			if try() {
				return nil
			}
		}
	}
}
