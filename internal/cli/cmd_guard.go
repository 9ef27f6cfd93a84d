package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/guard"
	"github.com/mistakeknot/agentmail/internal/reservation"
)

func newGuardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Manage the git guard hooks",
		Long: `Install, remove, or inspect the pre-commit and pre-push guard hooks.
The hooks check staged (or about-to-be-pushed) paths against other
agents' reservations and run standalone: they read the reservation
directory and environment only, no server involved.`,
	}

	cmd.AddCommand(newGuardInstallCmd())
	cmd.AddCommand(newGuardUninstallCmd())
	cmd.AddCommand(newGuardRenderCmd())

	return cmd
}

func guardKinds(cmd *cobra.Command) ([]guard.HookKind, error) {
	kind, _ := cmd.Flags().GetString("kind")
	switch kind {
	case "", "both":
		return []guard.HookKind{guard.PreCommit, guard.PrePush}, nil
	case string(guard.PreCommit):
		return []guard.HookKind{guard.PreCommit}, nil
	case string(guard.PrePush):
		return []guard.HookKind{guard.PrePush}, nil
	default:
		return nil, fmt.Errorf("--kind must be %q, %q, or \"both\"", guard.PreCommit, guard.PrePush)
	}
}

func newGuardInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install guard hooks into the current repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			kinds, err := guardKinds(cmd)
			if err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("working directory: %w", err)
			}
			project, err := currentProject(cmd.Context(), cfg, mustString(cmd, "project"))
			if err != nil {
				return err
			}
			resDir := reservation.NewStore(cfg).Dir(project)

			for _, kind := range kinds {
				hookPath, err := guard.Install(cmd.Context(), wd, resDir, kind)
				if err != nil {
					return fmt.Errorf("install %s: %w", kind, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", hookPath)
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "both", "hook to install: pre-commit, pre-push, or both")
	cmd.Flags().String("project", "", "project slug (default: resolved from the working directory)")

	return cmd
}

func newGuardUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove guard hooks, restoring any chained hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := guardKinds(cmd)
			if err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("working directory: %w", err)
			}
			for _, kind := range kinds {
				removed, err := guard.Uninstall(cmd.Context(), wd, kind)
				if err != nil {
					return fmt.Errorf("uninstall %s: %w", kind, err)
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s hook\n", kind)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "no %s guard hook installed\n", kind)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "both", "hook to remove: pre-commit, pre-push, or both")

	return cmd
}

func newGuardRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print a guard hook script without installing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			kind, _ := cmd.Flags().GetString("kind")
			project, err := currentProject(cmd.Context(), cfg, mustString(cmd, "project"))
			if err != nil {
				return err
			}
			resDir := reservation.NewStore(cfg).Dir(project)
			binary, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}

			var script string
			switch kind {
			case string(guard.PreCommit):
				script, err = guard.RenderCommitHook(resDir, binary, "")
			case string(guard.PrePush):
				script, err = guard.RenderPushHook(resDir, binary, "")
			default:
				return fmt.Errorf("--kind must be %q or %q", guard.PreCommit, guard.PrePush)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}

	cmd.Flags().String("kind", string(guard.PreCommit), "hook to render: pre-commit or pre-push")
	cmd.Flags().String("project", "", "project slug (default: resolved from the working directory)")

	return cmd
}
