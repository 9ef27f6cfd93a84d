package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/identity"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity [path]",
		Short: "Resolve a project's identity",
		Long: `Resolve the coordination identity of a directory (default: the working
directory). Inside a repository this follows the committed marker, the
private marker, or the remote fingerprint, so clones and worktrees of
the same project agree; a plain directory gets a path-scoped slug.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else if path, err = os.Getwd(); err != nil {
				return fmt.Errorf("working directory: %w", err)
			}

			id, err := identity.Resolve(cmd.Context(), cfg, path)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(id)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "slug:           %s\n", id.Slug)
			fmt.Fprintf(out, "mode:           %s\n", id.IdentityModeUsed)
			fmt.Fprintf(out, "canonical path: %s\n", id.CanonicalPath)
			if id.ProjectUID != "" {
				fmt.Fprintf(out, "project uid:    %s\n", id.ProjectUID)
			}
			if id.NormalizedRemote != "" {
				fmt.Fprintf(out, "remote:         %s\n", id.NormalizedRemote)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "output as JSON")

	return cmd
}
