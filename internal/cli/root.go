// Package cli implements the agentmail command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/identity"
	"github.com/mistakeknot/agentmail/internal/names"
)

var (
	cfgFile string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "agentmail",
	Short: "Multi-agent file coordination",
	Long: `agentmail coordinates agents working in the same repository: advisory
file reservations with conflict detection, project identity that follows
clones and worktrees, and git guard hooks that surface conflicts at
commit and push time.

Quick start:
  agentmail identity              Show the current project's identity
  agentmail claim 'src/**'        Reserve paths before editing
  agentmail guard install         Install the pre-commit/pre-push guard
  agentmail reservations          See who holds what`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "coordination data directory (default ~/.agentmail)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIdentityCmd())
	rootCmd.AddCommand(newClaimCmd())
	rootCmd.AddCommand(newReservationsCmd())
	rootCmd.AddCommand(newRenewCmd())
	rootCmd.AddCommand(newReleaseCmd())
	rootCmd.AddCommand(newGuardCmd())
	rootCmd.AddCommand(newHookCmd())
	rootCmd.AddCommand(newLocksCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newKeysCmd())
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// currentProject resolves the project slug for a command: an explicit
// --project value wins, otherwise the working directory's identity decides.
func currentProject(ctx context.Context, cfg config.Config, flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	id, err := identity.Resolve(ctx, cfg, wd)
	if err != nil {
		return "", err
	}
	return id.Slug, nil
}

// agentName resolves the acting agent: flag, then environment, then a
// generated name.
func agentName(flag string) string {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag
	}
	if v := strings.TrimSpace(os.Getenv(config.EnvAgent)); v != "" {
		return v
	}
	return names.Generate()
}
