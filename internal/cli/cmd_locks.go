package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/lockfile"
)

func newLocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Show a project's archive locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			project, err := currentProject(cmd.Context(), cfg, mustString(cmd, "project"))
			if err != nil {
				return err
			}
			stale, _ := cmd.Flags().GetDuration("stale-after")

			locks, err := lockfile.Status(cfg.ProjectDir(project), stale)
			if err != nil {
				return err
			}
			if len(locks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No locks held.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tPID\tHELD SINCE\tSTALE?")
			for _, l := range locks {
				staleMark := ""
				if l.StaleSuspected {
					staleMark = "suspected"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", l.Path, l.PID, l.CreatedAt.Local().Format(time.RFC3339), staleMark)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("project", "", "project slug (default: resolved from the working directory)")
	cmd.Flags().Duration("stale-after", lockfile.DefaultStaleTimeout, "age after which a lock is suspected stale")

	return cmd
}
