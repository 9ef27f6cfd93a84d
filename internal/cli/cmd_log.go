package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/storage/sqlite"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent coordination events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			project := mustString(cmd, "project")

			journal, err := sqlite.New(cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer journal.Close()

			events, err := journal.RecentEvents(project, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tPROJECT\tAGENT\tPATTERN\tDETAIL")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					ev.CreatedAt.Local().Format(time.RFC3339), ev.Type, ev.Project, ev.Agent, ev.PathPattern, ev.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("project", "", "limit to one project slug")
	cmd.Flags().Int("limit", 50, "maximum number of events")

	return cmd
}
