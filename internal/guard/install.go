package guard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mistakeknot/agentmail/internal/gitx"
)

// ChainedSuffix is appended to a pre-existing foreign hook when ours takes
// its place; the rendered script runs the moved hook first.
const ChainedSuffix = ".pre-agentmail"

// Install writes the guard hook for kind into the repository at repoPath,
// preserving any existing hook by chaining it. Returns the hook path. Works
// through `git rev-parse --git-path hooks`, so linked worktrees and a custom
// core.hooksPath resolve the same way git resolves them.
func Install(ctx context.Context, repoPath, reservationsDir string, kind HookKind) (string, error) {
	binary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return install(ctx, repoPath, reservationsDir, binary, kind)
}

func install(ctx context.Context, repoPath, reservationsDir, binary string, kind HookKind) (string, error) {
	hooksDir, err := gitx.New(repoPath).GitPath(ctx, "hooks")
	if err != nil {
		return "", fmt.Errorf("resolve hooks dir: %w", err)
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", fmt.Errorf("create hooks dir: %w", err)
	}

	hookPath := filepath.Join(hooksDir, string(kind))
	chainedPath := hookPath + ChainedSuffix

	existing, err := os.ReadFile(hookPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return "", fmt.Errorf("read existing hook: %w", err)
	case !strings.Contains(string(existing), Marker):
		// A foreign hook: move it aside and keep running it first.
		if err := os.Rename(hookPath, chainedPath); err != nil {
			return "", fmt.Errorf("preserve existing hook: %w", err)
		}
	}
	// Re-installing over our own hook just re-renders it; a previously
	// chained hook stays chained.

	chained := ""
	if _, err := os.Stat(chainedPath); err == nil {
		chained = chainedPath
	}

	script, err := render(kind, reservationsDir, binary, chained)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(hookPath, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("write hook: %w", err)
	}
	return hookPath, nil
}

// Uninstall removes the guard hook for kind and restores a chained hook to
// its original place. Returns false when no guard hook was installed. A hook
// file we did not write is left untouched.
func Uninstall(ctx context.Context, repoPath string, kind HookKind) (bool, error) {
	hooksDir, err := gitx.New(repoPath).GitPath(ctx, "hooks")
	if err != nil {
		return false, fmt.Errorf("resolve hooks dir: %w", err)
	}
	hookPath := filepath.Join(hooksDir, string(kind))
	chainedPath := hookPath + ChainedSuffix

	existing, err := os.ReadFile(hookPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read hook: %w", err)
	}
	if !strings.Contains(string(existing), Marker) {
		return false, nil
	}

	if err := os.Remove(hookPath); err != nil {
		return false, fmt.Errorf("remove hook: %w", err)
	}
	if _, err := os.Stat(chainedPath); err == nil {
		if err := os.Rename(chainedPath, hookPath); err != nil {
			return false, fmt.Errorf("restore chained hook: %w", err)
		}
	}
	return true, nil
}
