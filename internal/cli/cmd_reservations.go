package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/reservation"
)

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"ls"},
		Short:   "List a project's reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			project, err := currentProject(cmd.Context(), cfg, mustString(cmd, "project"))
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			store := reservation.NewStore(cfg)
			var reservations []core.Reservation
			if all {
				reservations, err = store.ListAll(project)
			} else {
				reservations, err = store.ListActive(project)
			}
			if err != nil {
				return err
			}
			if len(reservations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reservations.")
				return nil
			}

			now := time.Now().UTC()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tPATTERN\tMODE\tEXPIRES\tSTATE")
			for _, r := range reservations {
				mode := "exclusive"
				if !r.Exclusive {
					mode = "shared"
				}
				expires := "-"
				if r.ExpiresAt != nil {
					expires = r.ExpiresAt.Local().Format(time.RFC3339)
				}
				state := "active"
				if !r.IsActive(now) {
					state = "inactive"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Agent, r.PathPattern, mode, expires, state)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("project", "", "project slug (default: resolved from the working directory)")
	cmd.Flags().Bool("all", false, "include released and expired reservations")

	return cmd
}
