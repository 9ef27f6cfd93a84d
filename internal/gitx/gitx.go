// Package gitx wraps the git subprocess queries the identity resolver and
// guard runtime need: work-tree discovery, config reads, remote inspection,
// and changed-path listings.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes git against one working directory.
type Runner struct {
	Dir string
}

func New(dir string) Runner {
	return Runner{Dir: dir}
}

func (r Runner) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", r.Dir}, args...)
	out, err := exec.CommandContext(ctx, "git", full...).Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Repo describes the repository containing the runner's directory.
type Repo struct {
	TopLevel  string // work-tree root
	CommonDir string // metadata dir shared by all worktrees
}

// Resolve locates the enclosing repository. The returned bool is false when
// the directory is not inside a work tree; that is not an error.
func (r Runner) Resolve(ctx context.Context) (Repo, bool) {
	top, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil || top == "" {
		return Repo{}, false
	}
	common, err := r.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return Repo{}, false
	}
	if !filepath.IsAbs(common) {
		common = filepath.Join(top, common)
	}
	return Repo{TopLevel: top, CommonDir: filepath.Clean(common)}, true
}

// GitPath resolves a path inside the repository's git directory, following
// core.hooksPath and linked-worktree indirection the way git itself does.
func (r Runner) GitPath(ctx context.Context, name string) (string, error) {
	p, err := r.run(ctx, "rev-parse", "--git-path", name)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.Dir, p)
	}
	return filepath.Clean(p), nil
}

// ConfigValue reads a single config key. Missing keys return "", false.
func (r Runner) ConfigValue(ctx context.Context, key string) (string, bool) {
	v, err := r.run(ctx, "config", "--get", key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// PrimaryRemote returns the preferred remote name and its URL: origin when
// configured, otherwise the first listed remote.
func (r Runner) PrimaryRemote(ctx context.Context) (name, url string, ok bool) {
	out, err := r.run(ctx, "remote")
	if err != nil || out == "" {
		return "", "", false
	}
	remotes := strings.Fields(out)
	name = remotes[0]
	for _, rem := range remotes {
		if rem == "origin" {
			name = "origin"
			break
		}
	}
	url, ok = r.ConfigValue(ctx, "remote."+name+".url")
	return name, url, ok
}

// DefaultBranch resolves the remote's default branch from the local symbolic
// ref for refs/remotes/<remote>/HEAD. Returns "", false when the ref is not
// set (fresh clones without a fetched HEAD, offline mirrors).
func (r Runner) DefaultBranch(ctx context.Context, remote string) (string, bool) {
	ref, err := r.run(ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil || ref == "" {
		return "", false
	}
	return strings.TrimPrefix(ref, remote+"/"), true
}

// StagedPaths lists paths staged for commit, rename-aware: a rename reports
// the destination path, since that is the path the commit will create.
func (r Runner) StagedPaths(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "diff", "--cached", "--name-status", "-M")
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// RangePaths lists paths touched between two commits. An empty from means an
// unborn remote ref; the diff then runs against the empty tree so every path
// in the range counts as changed.
func (r Runner) RangePaths(ctx context.Context, from, to string) ([]string, error) {
	if from == "" || strings.Trim(from, "0") == "" {
		empty, err := r.run(ctx, "hash-object", "-t", "tree", "/dev/null")
		if err != nil {
			return nil, err
		}
		from = empty
	}
	out, err := r.run(ctx, "diff", "--name-only", "-M", from, to)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func parseNameStatus(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		switch {
		case len(fields) >= 3 && (fields[0][0] == 'R' || fields[0][0] == 'C'):
			// status OLD NEW: check the destination
			paths = append(paths, fields[2])
		case len(fields) >= 2:
			paths = append(paths, fields[1])
		}
	}
	return paths
}
