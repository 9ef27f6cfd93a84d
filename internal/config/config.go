// Package config carries the explicit configuration value threaded through the
// identity resolver, reservation engine, and guard compiler. Nothing in those
// packages reads process-global state; tests construct a Config directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables shared with the rendered guard scripts.
const (
	EnvRepoCoordination = "AGENT_MAIL_REPO_COORDINATION"
	EnvGuardMode        = "AGENT_MAIL_GUARD_MODE"
	EnvBypass           = "AGENT_MAIL_BYPASS"
	EnvAgent            = "AGENT_MAIL_AGENT"
	EnvDataDir          = "AGENT_MAIL_DATA_DIR"
)

type GuardMode string

const (
	GuardModeBlock GuardMode = "block"
	GuardModeWarn  GuardMode = "warn"
)

type Config struct {
	// DataDir is the root of all per-project coordination state.
	DataDir string `yaml:"data_dir"`

	// RepoCoordination gates every repository-aware feature. Off means the
	// identity resolver always uses directory mode and guard hooks no-op.
	RepoCoordination bool `yaml:"repo_coordination"`

	// IdentityMode is "auto" (repository-aware when possible) or "dir" to
	// force path-scoped identity even inside a repository.
	IdentityMode string `yaml:"identity_mode"`

	// DefaultBranch is the fallback branch name used for remote
	// fingerprinting when the remote HEAD cannot be determined.
	DefaultBranch string `yaml:"default_branch"`

	GuardMode GuardMode `yaml:"guard_mode"`

	// Server settings for the operational HTTP surface.
	Addr       string `yaml:"addr"`
	SocketPath string `yaml:"socket_path"`

	// JournalPath is the sqlite coordination journal. Empty disables it.
	JournalPath string `yaml:"journal_path"`
}

func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".agentmail")
	return Config{
		DataDir:          base,
		RepoCoordination: true,
		IdentityMode:     "auto",
		DefaultBranch:    "main",
		GuardMode:        GuardModeBlock,
		Addr:             ":7339",
		JournalPath:      filepath.Join(base, "journal.db"),
	}
}

// Load reads a YAML config file, layers environment overrides on top of the
// defaults, and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvRepoCoordination); ok {
		c.RepoCoordination = Truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvGuardMode)); v != "" {
		c.GuardMode = GuardMode(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir required")
	}
	switch c.GuardMode {
	case GuardModeBlock, GuardModeWarn:
	default:
		return fmt.Errorf("guard_mode must be %q or %q, got %q", GuardModeBlock, GuardModeWarn, c.GuardMode)
	}
	switch c.IdentityMode {
	case "auto", "dir":
	default:
		return fmt.Errorf("identity_mode must be \"auto\" or \"dir\", got %q", c.IdentityMode)
	}
	return nil
}

// ProjectDir returns the namespace directory for a project slug.
func (c Config) ProjectDir(slug string) string {
	return filepath.Join(c.DataDir, "projects", slug)
}

// Truthy interprets an environment flag: "1", "true", "yes", "on" (any case)
// count as set. The guard scripts use the same interpretation.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
