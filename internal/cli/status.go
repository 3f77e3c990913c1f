package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend connectivity and the current draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if Health != nil {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := Health.Health(ctx); err != nil {
				fmt.Fprintf(out, "%s %s (%s)\n", failStyle.Render("●"), "Backend offline", Health.BaseURL())
			} else {
				fmt.Fprintf(out, "%s %s (%s)\n", okStyle.Render("●"), "Backend connected", Health.BaseURL())
			}
			fmt.Fprintln(out)
		}

		editor := Session.EditorName()
		if editor == "" {
			editor = dimStyle.Render("(not logged in)")
		}
		ms := Session.Models()
		unrated := 0
		for _, m := range ms {
			if !m.Rated() {
				unrated++
			}
		}

		fmt.Fprintf(out, "  %-20s %s\n", "Editor:", editor)
		fmt.Fprintf(out, "  %-20s %s\n", "Draft started:", formatTime(Session.StartedAt()))
		fmt.Fprintf(out, "  %-20s %d\n", "Activities:", Session.Editor().Len())
		fmt.Fprintf(out, "  %-20s %d\n", "Classifications:", len(Session.Pipeline().Classifications()))
		fmt.Fprintf(out, "  %-20s %d (%d unrated)\n", "Generated models:", len(ms), unrated)
		fmt.Fprintf(out, "  %-20s %d\n", "History entries:", len(Session.History().List()))

		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Stages"))
		for _, st := range models.AllStages {
			line := fmt.Sprintf("  %-20s %s", string(st)+":", Session.Pipeline().State(st))
			if err := Session.Pipeline().LastError(st); err != nil {
				line += " " + failStyle.Render(err.Error())
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
