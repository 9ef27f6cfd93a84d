package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("agentmail %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestClaimListReleaseCommands(t *testing.T) {
	dir := t.TempDir()

	out := runRoot(t, "claim", "--data-dir", dir, "--project", "proj-a", "--agent", "Alice", "src/**")
	if !strings.Contains(out, "granted exclusive src/** to Alice") {
		t.Fatalf("claim output: %q", out)
	}

	// Overlapping claim by another agent reports the conflict but grants.
	out = runRoot(t, "claim", "--data-dir", dir, "--project", "proj-a", "--agent", "Bob", "src/app.py")
	if !strings.Contains(out, "conflict: src/app.py overlaps src/** held by Alice") {
		t.Fatalf("claim output: %q", out)
	}

	out = runRoot(t, "reservations", "--data-dir", dir, "--project", "proj-a")
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "Bob") {
		t.Fatalf("reservations output: %q", out)
	}

	out = runRoot(t, "release", "--data-dir", dir, "--project", "proj-a", "--agent", "Bob")
	if !strings.Contains(out, "released 1 reservation(s)") {
		t.Fatalf("release output: %q", out)
	}

	out = runRoot(t, "reservations", "--data-dir", dir, "--project", "proj-a")
	if strings.Contains(out, "Bob") {
		t.Fatalf("released reservation still listed: %q", out)
	}
}

func TestRenewCommand(t *testing.T) {
	dir := t.TempDir()

	runRoot(t, "claim", "--data-dir", dir, "--project", "proj-b", "--agent", "Alice", "--ttl", "1m", "docs/**")
	out := runRoot(t, "renew", "--data-dir", dir, "--project", "proj-b", "--agent", "Alice", "--extend", "2h")
	if !strings.Contains(out, "renewed 1 reservation(s)") {
		t.Fatalf("renew output: %q", out)
	}
}

func TestLocksCommandEmpty(t *testing.T) {
	dir := t.TempDir()
	out := runRoot(t, "locks", "--data-dir", dir, "--project", "proj-a")
	if !strings.Contains(out, "No locks held.") {
		t.Fatalf("locks output: %q", out)
	}
}

type testKeysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Projects map[string]struct {
		Keys []string `yaml:"keys"`
	} `yaml:"projects"`
}

func TestInitKeysFileCreatesProjectKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	key, err := InitKeysFile(path, "autarch")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if key == "" {
		t.Fatalf("expected generated key")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	var cfg testKeysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	keys := cfg.Projects["autarch"].Keys
	if len(keys) == 0 || keys[0] != key {
		t.Fatalf("expected autarch key %q, got %+v", key, keys)
	}
}

func TestKeysInitCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentmail.keys.yaml")

	out := runRoot(t, "keys", "init", "--file", path, "--project", "demo")
	if !strings.Contains(out, "key for demo") {
		t.Fatalf("keys init output: %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	if !bytes.Contains(data, []byte("demo")) {
		t.Fatalf("expected project section to be written")
	}
}
