package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/core"
)

func gitAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "test")
	return dir
}

// writeReservation drops an artifact the way the store would, with expiry
// offset from now (0 means no expiry).
func writeReservation(t *testing.T, dir, agent, pattern string, exclusive bool, expiresIn time.Duration) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	art := map[string]any{
		"agent":        agent,
		"exclusive":    exclusive,
		"path_pattern": pattern,
		"created_ts":   float64(time.Now().Unix()),
	}
	if expiresIn != 0 {
		art["expires_ts"] = float64(time.Now().Add(expiresIn).UnixNano()) / 1e9
	}
	data, _ := json.Marshal(art)
	name := filepath.Join(dir, "art-"+strings.ReplaceAll(pattern, "/", "_")+".json")
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func stageFile(t *testing.T, repo, name string) {
	t.Helper()
	full := filepath.Join(repo, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("change\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	git(t, repo, "add", name)
}

func TestCheckGateOffSkipsEverything(t *testing.T) {
	// No repo, no reservation dir: with the gate off nothing may be read.
	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         "/nonexistent",
		ReservationsDir: "/nonexistent",
		Env:             map[string]string{config.EnvRepoCoordination: "0", config.EnvAgent: "Alice"},
	})
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
}

func TestCheckBypassAlwaysSucceeds(t *testing.T) {
	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         "/nonexistent",
		ReservationsDir: "/nonexistent",
		Env:             map[string]string{config.EnvBypass: "1"},
	})
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
}

func TestCheckMissingIdentityFails(t *testing.T) {
	var stderr bytes.Buffer
	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         "/nonexistent",
		ReservationsDir: "/nonexistent",
		Env:             map[string]string{},
		Stderr:          &stderr,
	})
	if code != ExitBlock {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), config.EnvAgent) {
		t.Fatalf("stderr should name the missing variable: %q", stderr.String())
	}
}

func TestCheckBlocksForeignExclusiveReservation(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Other", "src/app.py", true, time.Hour)
	stageFile(t, repo, "src/app.py")

	var stderr bytes.Buffer
	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice", config.EnvGuardMode: "block"},
		Stderr:          &stderr,
	})
	if code != ExitBlock {
		t.Fatalf("exit = %d, want 1\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "src/app.py") || !strings.Contains(stderr.String(), "exclusive") {
		t.Fatalf("diagnostic should name the pattern and exclusivity: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "Other") {
		t.Fatalf("diagnostic should name the holder: %q", stderr.String())
	}
}

func TestCheckWarnModeReportsButSucceeds(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Other", "src/app.py", true, time.Hour)
	stageFile(t, repo, "src/app.py")

	var stderr bytes.Buffer
	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice", config.EnvGuardMode: "warn"},
		Stderr:          &stderr,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
	if !strings.Contains(stderr.String(), "src/app.py") {
		t.Fatalf("warn mode still prints the diagnostic: %q", stderr.String())
	}
}

func TestCheckExpiredReservationDoesNotBlock(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Other", "src/app.py", true, -time.Hour)
	stageFile(t, repo, "src/app.py")

	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice"},
	})
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
}

func TestCheckOwnReservationDoesNotBlock(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Alice", "src/**", true, time.Hour)
	stageFile(t, repo, "src/app.py")

	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice"},
	})
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
}

func TestCheckStagedRenameDestinationBlocked(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Other", "src/app.py", true, time.Hour)

	if err := os.MkdirAll(filepath.Join(repo, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "old.py"), []byte("print('hello rename')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	git(t, repo, "add", "old.py")
	git(t, repo, "commit", "-q", "-m", "seed")
	git(t, repo, "mv", "old.py", "src/app.py")

	code := Check(context.Background(), Input{
		Kind:            PreCommit,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice", config.EnvGuardMode: "block"},
	})
	if code != ExitBlock {
		t.Fatalf("rename destination should block, exit = %d", code)
	}
}

func TestCheckPrePushNewRefUsesEmptyBaseline(t *testing.T) {
	gitAvailable(t)
	repo := initRepo(t)
	resDir := filepath.Join(t.TempDir(), "file_reservations")
	writeReservation(t, resDir, "Other", "src/**", true, time.Hour)

	stageFile(t, repo, "src/app.py")
	git(t, repo, "commit", "-q", "-m", "first")

	sha := headSHA(t, repo)
	stdin := strings.NewReader("refs/heads/main " + sha + " refs/heads/main 0000000000000000000000000000000000000000\n")

	var stderr bytes.Buffer
	code := Check(context.Background(), Input{
		Kind:            PrePush,
		RepoDir:         repo,
		ReservationsDir: resDir,
		Env:             map[string]string{config.EnvAgent: "Alice", config.EnvGuardMode: "block"},
		Stdin:           stdin,
		Stderr:          &stderr,
	})
	if code != ExitBlock {
		t.Fatalf("exit = %d, want 1\nstderr: %s", code, stderr.String())
	}
}

func headSHA(t *testing.T, repo string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", repo, "rev-parse", "HEAD").Output()
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	return strings.TrimSpace(string(out))
}

func TestConflictsSharedNeverBlocks(t *testing.T) {
	res := []core.Reservation{{Agent: "Other", PathPattern: "src/**", Exclusive: false}}
	if got := Conflicts("Alice", []string{"src/app.py"}, res); len(got) != 0 {
		t.Fatalf("shared reservation produced conflicts: %+v", got)
	}
}

func TestConflictsPatternMatch(t *testing.T) {
	res := []core.Reservation{{Agent: "Other", PathPattern: "src/**", Exclusive: true}}
	got := Conflicts("Alice", []string{"src/dir/nested.py", "docs/readme.md"}, res)
	if len(got) != 1 || got[0].Path != "src/dir/nested.py" {
		t.Fatalf("conflicts = %+v", got)
	}
}
