// Package reservation persists advisory path claims as one JSON artifact per
// distinct pattern, addressed by a content hash of the pattern text, and
// computes pattern-overlap conflicts against outstanding claims.
//
// Claims never block the claimant: every requested pattern is granted, and
// conflicts are reported alongside the grant for the caller to act on. All
// mutations to a project namespace run under the archive lock; reads are
// lock-free and tolerate a moment of staleness.
package reservation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/glob"
	"github.com/mistakeknot/agentmail/internal/lockfile"
)

// DirName is the artifact directory inside a project namespace.
const DirName = "file_reservations"

// renewEpsilon guarantees a renewed expiry is strictly greater than the prior
// value even when two renewals land on the same clock reading.
const renewEpsilon = time.Millisecond

// MalformedArtifactError is a typed failure so callers can tell a corrupt
// store ("configuration problem") from transient contention ("try again").
type MalformedArtifactError struct {
	Path string
	Err  error
}

func (e *MalformedArtifactError) Error() string {
	return fmt.Sprintf("malformed reservation artifact %s: %v", e.Path, e.Err)
}

func (e *MalformedArtifactError) Unwrap() error { return e.Err }

// PatternError reports a requested pattern the store refused to accept.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// artifact is the on-disk form. Timestamps are epoch seconds with sub-second
// precision.
type artifact struct {
	Agent       string   `json:"agent"`
	Exclusive   bool     `json:"exclusive"`
	PathPattern string   `json:"path_pattern"`
	Reason      string   `json:"reason,omitempty"`
	CreatedTS   *float64 `json:"created_ts,omitempty"`
	ExpiresTS   *float64 `json:"expires_ts,omitempty"`
	ReleasedTS  *float64 `json:"released_ts,omitempty"`
}

func (a artifact) toReservation(project string) core.Reservation {
	r := core.Reservation{
		Agent:       a.Agent,
		Project:     project,
		PathPattern: a.PathPattern,
		Exclusive:   a.Exclusive,
		Reason:      a.Reason,
	}
	if a.CreatedTS != nil {
		r.CreatedAt = fromEpoch(*a.CreatedTS)
	}
	if a.ExpiresTS != nil {
		t := fromEpoch(*a.ExpiresTS)
		r.ExpiresAt = &t
	}
	if a.ReleasedTS != nil {
		t := fromEpoch(*a.ReleasedTS)
		r.ReleasedAt = &t
	}
	return r
}

func (a artifact) active(now time.Time) bool {
	if a.ReleasedTS != nil {
		return false
	}
	if a.ExpiresTS == nil {
		return true
	}
	return fromEpoch(*a.ExpiresTS).After(now)
}

func toEpoch(t time.Time) float64   { return float64(t.UnixNano()) / 1e9 }
func fromEpoch(s float64) time.Time { return time.Unix(0, int64(s*1e9)) }

// ArtifactName addresses a pattern's artifact by content hash, so re-claiming
// the same pattern updates one file instead of accumulating duplicates.
func ArtifactName(pattern string) string {
	sum := sha1.Sum([]byte(pattern))
	return hex.EncodeToString(sum[:]) + ".json"
}

// Store reads and writes one project namespace per call.
type Store struct {
	cfg      config.Config
	overlaps *glob.Cache
	lockOpts lockfile.Options
}

func NewStore(cfg config.Config) *Store {
	return &Store{cfg: cfg, overlaps: glob.NewCache()}
}

// Dir returns the reservation directory for a project slug.
func (s *Store) Dir(project string) string {
	return filepath.Join(s.cfg.ProjectDir(project), DirName)
}

func (s *Store) lockPath(project string) string {
	return filepath.Join(s.cfg.ProjectDir(project), lockfile.Name)
}

// ClaimResult carries the always-produced grant plus any overlap conflicts,
// and whether acquiring the archive lock had to break a stale holder.
type ClaimResult struct {
	Granted    []core.Reservation
	Conflicts  []core.ConflictDetail
	BrokeStale bool
}

// Claim grants every requested pattern and reports overlaps with other
// agents' active reservations. Exclusive claims conflict with any overlapping
// claim; shared claims only conflict with overlapping exclusive ones.
func (s *Store) Claim(ctx context.Context, project, agent string, patterns []string, exclusive bool, ttl time.Duration, reason string) (ClaimResult, error) {
	if agent == "" {
		return ClaimResult{}, fmt.Errorf("agent required")
	}
	for _, p := range patterns {
		if err := glob.ValidateComplexity(p); err != nil {
			return ClaimResult{}, &PatternError{Pattern: p, Err: err}
		}
	}

	h, err := lockfile.Acquire(ctx, s.lockPath(project), s.lockOpts)
	if err != nil {
		return ClaimResult{}, err
	}
	defer h.Release()

	existing, err := s.loadAll(project)
	if err != nil {
		return ClaimResult{}, err
	}

	now := time.Now().UTC()
	res := ClaimResult{BrokeStale: h.BrokeStale}
	for _, pattern := range patterns {
		for _, held := range existing {
			if held.Agent == agent || !held.active(now) {
				continue
			}
			if !exclusive && !held.Exclusive {
				continue
			}
			overlap, err := s.overlaps.Overlap(pattern, held.PathPattern)
			if err != nil || !overlap {
				continue
			}
			res.Conflicts = append(res.Conflicts, core.ConflictDetail{
				Pattern:     pattern,
				HeldPattern: held.PathPattern,
				HeldBy:      held.Agent,
				Exclusive:   held.Exclusive,
				Reason:      held.Reason,
			})
		}

		created := toEpoch(now)
		art := artifact{
			Agent:       agent,
			Exclusive:   exclusive,
			PathPattern: pattern,
			Reason:      reason,
			CreatedTS:   &created,
		}
		if ttl > 0 {
			expires := toEpoch(now.Add(ttl))
			art.ExpiresTS = &expires
		}
		if err := s.write(project, art); err != nil {
			return ClaimResult{}, err
		}
		res.Granted = append(res.Granted, art.toReservation(project))
	}
	return res, nil
}

// Renew extends the expiry of the agent's active reservations to now+extend.
// Renewal does not compound: the new expiry is computed from now, never from
// the prior expiry, but it is always strictly greater than the prior value.
// Empty patterns means all of the agent's reservations.
func (s *Store) Renew(ctx context.Context, project, agent string, patterns []string, extend time.Duration) (int, error) {
	return s.mutate(ctx, project, agent, patterns, func(a *artifact, now time.Time) bool {
		next := now.Add(extend)
		if a.ExpiresTS != nil {
			if prev := fromEpoch(*a.ExpiresTS); !next.After(prev) {
				next = prev.Add(renewEpsilon)
			}
		}
		ts := toEpoch(next)
		a.ExpiresTS = &ts
		return true
	})
}

// Release marks the agent's active reservations as released. Artifacts are
// never hard-deleted; released entries remain for audit.
func (s *Store) Release(ctx context.Context, project, agent string, patterns []string) (int, error) {
	return s.mutate(ctx, project, agent, patterns, func(a *artifact, now time.Time) bool {
		ts := toEpoch(now)
		a.ReleasedTS = &ts
		return true
	})
}

func (s *Store) mutate(ctx context.Context, project, agent string, patterns []string, apply func(*artifact, time.Time) bool) (int, error) {
	if agent == "" {
		return 0, fmt.Errorf("agent required")
	}
	wanted := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		wanted[p] = true
	}

	h, err := lockfile.Acquire(ctx, s.lockPath(project), s.lockOpts)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	existing, err := s.loadAll(project)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	count := 0
	for _, art := range existing {
		if art.Agent != agent || !art.active(now) {
			continue
		}
		if len(wanted) > 0 && !wanted[art.PathPattern] {
			continue
		}
		if !apply(&art, now) {
			continue
		}
		if err := s.write(project, art); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ListActive returns the project's active reservations. The read takes no
// lock: a write landing concurrently may not be visible yet.
func (s *Store) ListActive(project string) ([]core.Reservation, error) {
	all, err := s.loadAll(project)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var out []core.Reservation
	for _, art := range all {
		if art.active(now) {
			out = append(out, art.toReservation(project))
		}
	}
	return out, nil
}

// ListAll returns every reservation artifact, released and expired included.
func (s *Store) ListAll(project string) ([]core.Reservation, error) {
	all, err := s.loadAll(project)
	if err != nil {
		return nil, err
	}
	out := make([]core.Reservation, 0, len(all))
	for _, art := range all {
		out = append(out, art.toReservation(project))
	}
	return out, nil
}

func (s *Store) loadAll(project string) ([]artifact, error) {
	dir := s.Dir(project)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reservations: %w", err)
	}

	var out []artifact
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // racing with a concurrent rename
			}
			return nil, fmt.Errorf("read artifact: %w", err)
		}
		var art artifact
		if err := json.Unmarshal(data, &art); err != nil {
			return nil, &MalformedArtifactError{Path: path, Err: err}
		}
		out = append(out, art)
	}
	return out, nil
}

func (s *Store) write(project string, art artifact) error {
	dir := s.Dir(project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reservation dir: %w", err)
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	path := filepath.Join(dir, ArtifactName(art.PathPattern))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
