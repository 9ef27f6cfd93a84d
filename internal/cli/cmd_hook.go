package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/guard"
)

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Hook runtime entry points",
		Hidden: true,
	}
	cmd.AddCommand(newHookRunCmd())
	return cmd
}

// hook run is what the rendered guard scripts exec. It reads the reservation
// directory and the environment, writes diagnostics to stderr, and exits 0
// or 1; the git hook propagates that exit code.
func newHookRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a guard check (invoked by the installed hooks)",
		RunE: func(cmd *cobra.Command, args []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			resDir, _ := cmd.Flags().GetString("reservations")

			var kind guard.HookKind
			switch kindFlag {
			case string(guard.PreCommit):
				kind = guard.PreCommit
			case string(guard.PrePush):
				kind = guard.PrePush
			default:
				return fmt.Errorf("--kind must be %q or %q", guard.PreCommit, guard.PrePush)
			}
			if resDir == "" {
				return fmt.Errorf("--reservations required")
			}
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("working directory: %w", err)
			}

			code := guard.Check(cmd.Context(), guard.Input{
				Kind:            kind,
				RepoDir:         wd,
				ReservationsDir: resDir,
				Env:             environMap(),
				Stdin:           cmd.InOrStdin(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if code != guard.ExitOK {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "hook kind: pre-commit or pre-push")
	cmd.Flags().String("reservations", "", "reservation directory to check against")

	return cmd
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
