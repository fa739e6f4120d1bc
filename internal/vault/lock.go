package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// flockRetryDelay is the poll interval while waiting for a cross-process
// file lock.
const flockRetryDelay = 25 * time.Millisecond

// lockRegistry hands out one mutex per document path so concurrent writers
// to the same file serialize in-process. Entries are reference-counted and
// removed when the last holder releases, keeping the map proportional to
// in-flight writes, not vault size.
type lockRegistry struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the per-path mutex is held and returns the release
// function.
func (r *lockRegistry) acquire(path string) func() {
	r.mu.Lock()
	e, ok := r.entries[path]
	if !ok {
		e = &lockEntry{}
		r.entries[path] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.entries, path)
		}
		r.mu.Unlock()
	}
}

// fileLock guards a document against writers in other processes using a
// sidecar flock under {root}/.locks. Lock files are keyed by a hash of the
// document path so the vault tree itself stays clean and human-readable.
type fileLock struct {
	root string
}

func newFileLock(root string) *fileLock {
	return &fileLock{root: root}
}

// acquire takes the cross-process lock for path, returning the release
// function. Waits until the lock is granted or ctx is done.
func (f *fileLock) acquire(ctx context.Context, path string) (func(), error) {
	lockDir := filepath.Join(f.root, ".locks")
	if err := os.MkdirAll(lockDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	sum := sha256.Sum256([]byte(path))
	lockPath := filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")

	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, flockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock for %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("file lock for %s not granted", path)
	}

	return func() {
		_ = fl.Unlock()
	}, nil
}
