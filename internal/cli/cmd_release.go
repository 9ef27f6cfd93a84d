package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/reservation"
)

func newReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release [pattern]...",
		Short: "Release reservations",
		Long: `Mark your reservations released. Released artifacts stay on disk for
the audit trail but no longer participate in conflict checks. Without
patterns, all of your reservations release.`,
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

			store := reservation.NewStore(cfg)
			count, err := store.Release(cmd.Context(), project, agent, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %d reservation(s)\n", count)
			return nil
		},
	}

	addReservationFlags(cmd)

	return cmd
}
