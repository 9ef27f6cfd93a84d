// Package identity resolves a working-directory path to a stable
// ProjectIdentity. Resolution never fails on a non-repository path: every
// fault degrades to directory-mode identity.
//
// Precedence inside a repository: committed marker, then private marker,
// then remote fingerprint, then directory fallback. The markers are explicit
// pins and always beat content-derived identity.
package identity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/gitx"
)

const (
	// CommittedMarkerName is tracked at the work-tree root and shared by
	// every clone.
	CommittedMarkerName = ".agent-mail-project-id"
	// PrivateMarkerRel lives under the git common dir: untracked, local to
	// one clone, but shared by all of that clone's worktrees.
	PrivateMarkerRel = "agent-mail/project-id"
)

// Resolve computes the identity of the project containing humanKey.
func Resolve(ctx context.Context, cfg config.Config, humanKey string) (core.ProjectIdentity, error) {
	canonical := Canonicalize(humanKey)
	id := core.ProjectIdentity{
		HumanKey:         humanKey,
		CanonicalPath:    canonical,
		IdentityModeUsed: core.IdentityModeDir,
		Slug:             DirSlug(canonical),
	}

	if !cfg.RepoCoordination || cfg.IdentityMode == "dir" {
		return id, nil
	}

	git := gitx.New(canonical)
	repo, ok := git.Resolve(ctx)
	if !ok {
		return id, nil
	}

	if v, ok := git.ConfigValue(ctx, "core.ignorecase"); ok {
		if config.Truthy(v) {
			id.CoreIgnoreCase = core.IgnoreCaseTrue
		} else {
			id.CoreIgnoreCase = core.IgnoreCaseFalse
		}
	}

	if uid := readMarker(filepath.Join(repo.TopLevel, CommittedMarkerName)); uid != "" {
		return withUID(id, uid), nil
	}
	if uid := readMarker(filepath.Join(repo.CommonDir, filepath.FromSlash(PrivateMarkerRel))); uid != "" {
		return withUID(id, uid), nil
	}

	if remote, url, ok := git.PrimaryRemote(ctx); ok {
		normalized, err := NormalizeRemoteURL(url)
		if err == nil {
			branch, ok := git.DefaultBranch(ctx, remote)
			if !ok {
				branch = cfg.DefaultBranch
			}
			id.NormalizedRemote = normalized
			return withUID(id, FingerprintUID(normalized, branch)), nil
		}
	}

	// Inside a repository but with nothing shareable to pin identity to.
	return id, nil
}

func withUID(id core.ProjectIdentity, uid string) core.ProjectIdentity {
	id.IdentityModeUsed = core.IdentityModeGitCommonDir
	id.ProjectUID = uid
	id.Slug = uid
	return id
}

func readMarker(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Canonicalize resolves a path to its symlink-free absolute form. Paths that
// do not (yet) exist are cleaned but otherwise taken as given.
func Canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

// Resolver caches resolutions per process. Identity only changes when markers
// or remotes change, which callers signal by constructing a fresh Resolver.
type Resolver struct {
	cfg   config.Config
	mu    sync.Mutex
	cache map[string]core.ProjectIdentity
}

func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{cfg: cfg, cache: make(map[string]core.ProjectIdentity)}
}

func (r *Resolver) Resolve(ctx context.Context, humanKey string) (core.ProjectIdentity, error) {
	key := Canonicalize(humanKey)

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		cached.HumanKey = humanKey
		return cached, nil
	}

	id, err := Resolve(ctx, r.cfg, humanKey)
	if err != nil {
		return core.ProjectIdentity{}, err
	}
	r.mu.Lock()
	r.cache[key] = id
	r.mu.Unlock()
	return id, nil
}
