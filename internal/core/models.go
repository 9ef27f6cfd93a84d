package core

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// IdentityMode records which resolution strategy produced a ProjectIdentity.
type IdentityMode string

const (
	// IdentityModeDir means plain-directory semantics: identity follows the
	// canonical filesystem path of the working directory.
	IdentityModeDir IdentityMode = "dir"
	// IdentityModeGitCommonDir means version-control-aware semantics: identity
	// is shared by every clone/worktree that shares the same marker or remote.
	IdentityModeGitCommonDir IdentityMode = "git-common-dir"
)

// IgnoreCase is the tri-state core.ignorecase value of a repository.
type IgnoreCase string

const (
	IgnoreCaseUnknown IgnoreCase = ""
	IgnoreCaseTrue    IgnoreCase = "true"
	IgnoreCaseFalse   IgnoreCase = "false"
)

// ProjectIdentity is the resolved identity of a logical project. It is derived,
// never stored; resolutions against clones or worktrees of the same project
// must agree on UID and Slug.
type ProjectIdentity struct {
	HumanKey         string       `json:"human_key"`
	CanonicalPath    string       `json:"canonical_path"`
	IdentityModeUsed IdentityMode `json:"identity_mode_used"`
	ProjectUID       string       `json:"project_uid,omitempty"`
	NormalizedRemote string       `json:"normalized_remote,omitempty"`
	CoreIgnoreCase   IgnoreCase   `json:"core_ignorecase,omitempty"`
	Slug             string       `json:"slug"`
}

// Reservation is an advisory claim by an agent over a glob-style path pattern,
// scoped to a project namespace. One artifact exists per distinct pattern.
type Reservation struct {
	Agent       string     `json:"agent"`
	Project     string     `json:"project,omitempty"`
	PathPattern string     `json:"path_pattern"`
	Exclusive   bool       `json:"exclusive"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"-"`
	ExpiresAt   *time.Time `json:"-"`
	ReleasedAt  *time.Time `json:"-"`
}

// IsActive reports whether the reservation participates in conflict checks:
// not released, and either unbounded or not yet expired.
func (r Reservation) IsActive(now time.Time) bool {
	if r.ReleasedAt != nil {
		return false
	}
	if r.ExpiresAt == nil {
		return true
	}
	return r.ExpiresAt.After(now)
}

// ConflictDetail describes an overlap between a requested pattern and an
// outstanding reservation held by another agent.
type ConflictDetail struct {
	Pattern     string `json:"pattern"`
	HeldPattern string `json:"held_pattern"`
	HeldBy      string `json:"held_by"`
	Exclusive   bool   `json:"exclusive"`
	Reason      string `json:"reason,omitempty"`
}

// LockStatus describes one on-disk archive lock, as seen by a non-owning
// process reading the lock and owner-metadata files.
type LockStatus struct {
	Path           string    `json:"path"`
	PID            int       `json:"pid"`
	CreatedAt      time.Time `json:"created_at"`
	StaleSuspected bool      `json:"stale_suspected"`
}
