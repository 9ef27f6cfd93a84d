package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/reservation"
)

func newRenewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renew [pattern]...",
		Short: "Extend reservations",
		Long: `Push the expiry of your reservations to now plus --extend. Renewal
never compounds: the new expiry is measured from now, not from the
previous expiry. Without patterns, all of your reservations renew.`,
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
			extend, _ := cmd.Flags().GetDuration("extend")
			if extend <= 0 {
				return fmt.Errorf("--extend must be positive")
			}

			store := reservation.NewStore(cfg)
			count, err := store.Renew(cmd.Context(), project, agent, args, extend)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renewed %d reservation(s)\n", count)
			return nil
		},
	}

	addReservationFlags(cmd)
	cmd.Flags().Duration("extend", time.Hour, "new lifetime measured from now")

	return cmd
}
