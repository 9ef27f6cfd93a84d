package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func gitAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "init", "-q")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "user.name", "test")
	return dir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestResolveOutsideRepo(t *testing.T) {
	gitAvailable(t)
	r := New(t.TempDir())
	if _, ok := r.Resolve(context.Background()); ok {
		t.Fatal("bare temp dir should not resolve as a work tree")
	}
}

func TestResolveInsideRepo(t *testing.T) {
	gitAvailable(t)
	dir := initRepo(t)
	repo, ok := New(dir).Resolve(context.Background())
	if !ok {
		t.Fatal("expected work tree")
	}
	if repo.TopLevel == "" || repo.CommonDir == "" {
		t.Fatalf("incomplete repo: %+v", repo)
	}
	if filepath.Base(repo.CommonDir) != ".git" {
		t.Fatalf("common dir = %q, want .git", repo.CommonDir)
	}
}

func TestStagedPathsRenameAware(t *testing.T) {
	gitAvailable(t)
	dir := initRepo(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "old.txt"), []byte("same content both sides\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "add", "old.txt")
	run(t, dir, "commit", "-q", "-m", "add old")
	run(t, dir, "mv", "old.txt", "new.txt")

	paths, err := New(dir).StagedPaths(ctx)
	if err != nil {
		t.Fatalf("staged paths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "new.txt" {
		t.Fatalf("staged paths = %v, want [new.txt]", paths)
	}
}

func TestRangePathsEmptyBaseline(t *testing.T) {
	gitAvailable(t)
	dir := initRepo(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "add", "a.txt")
	run(t, dir, "commit", "-q", "-m", "first")

	paths, err := New(dir).RangePaths(ctx, "0000000000000000000000000000000000000000", "HEAD")
	if err != nil {
		t.Fatalf("range paths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "a.txt" {
		t.Fatalf("range paths = %v, want [a.txt]", paths)
	}
}
