// Package lockfile is the cooperative, crash-tolerant mutual exclusion
// primitive that serializes writes to a project's coordination state. A lock
// is one exclusively-created file plus an adjacent owner-metadata file; other
// processes discover lock state by reading those, never by holding them.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mistakeknot/agentmail/internal/core"
)

const (
	// Name is the archive lock filename inside a project namespace.
	Name = ".archive.lock"
	// OwnerSuffix is appended to the lock path for the metadata artifact.
	OwnerSuffix = ".owner.json"

	DefaultAcquireTimeout = 10 * time.Second
	DefaultStaleTimeout   = 10 * time.Minute

	pollInterval = 25 * time.Millisecond
)

// ErrTimeout distinguishes "could not acquire in time" from data errors.
var ErrTimeout = errors.New("lock acquire timeout")

// Owner is the on-disk metadata of the lock holder.
type Owner struct {
	PID       int   `json:"pid"`
	CreatedTS int64 `json:"created_ts"`
}

type Options struct {
	AcquireTimeout time.Duration
	StaleTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.StaleTimeout <= 0 {
		o.StaleTimeout = DefaultStaleTimeout
	}
	return o
}

// Handle represents a held lock. Release is safe to call more than once.
type Handle struct {
	path     string
	released bool

	// BrokeStale reports that acquisition force-broke a stale lock, with
	// the evicted owner's metadata when it was readable.
	BrokeStale bool
	Evicted    *Owner
}

// Acquire takes the lock at path, breaking it if the current owner metadata
// is older than StaleTimeout, and polling until AcquireTimeout otherwise.
func Acquire(ctx context.Context, path string, opts Options) (*Handle, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	h := &Handle{path: path}
	deadline := time.Now().Add(opts.AcquireTimeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			if err := writeOwner(path); err != nil {
				os.Remove(path)
				return nil, err
			}
			return h, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		owner, age := readOwner(path)
		if age > opts.StaleTimeout {
			// Recovery, not an error: the prior owner is presumed dead.
			log.Printf("lockfile: breaking stale lock %s (age %s, pid %d)", path, age.Round(time.Second), ownerPID(owner))
			os.Remove(path + OwnerSuffix)
			os.Remove(path)
			h.BrokeStale = true
			h.Evicted = owner
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held by pid %d", ErrTimeout, path, ownerPID(owner))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release removes the lock and its owner metadata. Missing files mean the
// lock was already released; that is not an error.
func (h *Handle) Release() error {
	if h == nil || h.released {
		return nil
	}
	h.released = true
	var first error
	for _, p := range []string{h.path + OwnerSuffix, h.path} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) && first == nil {
			first = fmt.Errorf("release lock: %w", err)
		}
	}
	return first
}

// Status enumerates lock files under dir with their owner metadata and a
// stale-suspected flag.
func Status(dir string, staleTimeout time.Duration) ([]core.LockStatus, error) {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock dir: %w", err)
	}

	var out []core.LockStatus
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		owner, age := readOwner(path)
		st := core.LockStatus{
			Path:           path,
			PID:            ownerPID(owner),
			StaleSuspected: age > staleTimeout,
		}
		if owner != nil {
			st.CreatedAt = time.Unix(owner.CreatedTS, 0).UTC()
		}
		out = append(out, st)
	}
	return out, nil
}

func writeOwner(path string) error {
	owner := Owner{PID: os.Getpid(), CreatedTS: time.Now().Unix()}
	data, err := json.Marshal(owner)
	if err != nil {
		return fmt.Errorf("marshal owner: %w", err)
	}
	tmp := path + OwnerSuffix + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write owner: %w", err)
	}
	if err := os.Rename(tmp, path+OwnerSuffix); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename owner: %w", err)
	}
	return nil
}

// readOwner returns the owner metadata and the lock's age. When the metadata
// is unreadable the lock file's mtime stands in, so a lock orphaned mid-write
// can still go stale.
func readOwner(path string) (*Owner, time.Duration) {
	data, err := os.ReadFile(path + OwnerSuffix)
	if err == nil {
		var owner Owner
		if json.Unmarshal(data, &owner) == nil && owner.CreatedTS > 0 {
			return &owner, time.Since(time.Unix(owner.CreatedTS, 0))
		}
	}
	if info, err := os.Stat(path); err == nil {
		return nil, time.Since(info.ModTime())
	}
	return nil, 0
}

func ownerPID(o *Owner) int {
	if o == nil {
		return 0
	}
	return o.PID
}
