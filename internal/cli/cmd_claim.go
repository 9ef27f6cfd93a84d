package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/reservation"
)

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim <pattern>...",
		Short: "Reserve path patterns before editing",
		Long: `Claim advisory reservations over glob-style path patterns. Claims always
succeed; overlaps with other agents' reservations are reported so you
can coordinate, not silently refused.

Examples:
  agentmail claim 'src/**'
  agentmail claim --shared 'docs/**' --reason "updating guides"
  agentmail claim --ttl 2h 'internal/auth/*.go'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			project, err := currentProject(cmd.Context(), cfg, mustString(cmd, "project"))
			if err != nil {
				return err
			}
			agent := agentName(mustString(cmd, "agent"))
			shared, _ := cmd.Flags().GetBool("shared")
			reason := mustString(cmd, "reason")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			store := reservation.NewStore(cfg)
			result, err := store.Claim(cmd.Context(), project, agent, args, !shared, ttl, reason)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, g := range result.Granted {
				kind := "exclusive"
				if !g.Exclusive {
					kind = "shared"
				}
				fmt.Fprintf(out, "granted %s %s to %s\n", kind, g.PathPattern, g.Agent)
			}
			for _, c := range result.Conflicts {
				fmt.Fprintf(out, "conflict: %s overlaps %s held by %s\n", c.Pattern, c.HeldPattern, c.HeldBy)
			}
			if result.BrokeStale {
				fmt.Fprintln(out, "note: broke a stale archive lock")
			}
			return nil
		},
	}

	addReservationFlags(cmd)
	cmd.Flags().Bool("shared", false, "claim shared instead of exclusive")
	cmd.Flags().String("reason", "", "why the paths are reserved")
	cmd.Flags().Duration("ttl", time.Hour, "reservation lifetime (0 for no expiry)")

	return cmd
}

func addReservationFlags(cmd *cobra.Command) {
	cmd.Flags().String("project", "", "project slug (default: resolved from the working directory)")
	cmd.Flags().String("agent", "", "acting agent name (default: $"+config.EnvAgent+" or generated)")
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
