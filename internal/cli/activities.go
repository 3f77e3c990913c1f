package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/pkg/models"
)

var (
	addAfter       int
	addTyp         string
	addBezeichnung string
	addGrundlage   string
)

var activitiesCmd = &cobra.Command{
	Use:     "activities",
	Aliases: []string{"act"},
	Short:   "View and edit the current activity list",
	Long: `Commands for editing the activity list of the current draft.

Activities are addressed by their number (nr). Numbers are reassigned after
every insert, removal and move. Use 'procmod edit' for the interactive editor.`,
}

var activitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the current activity list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		printActivities(cmd.OutOrStdout(), Session.Editor().List())
		return nil
	},
}

var activitiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a new activity",
	Long: `Insert a new activity after the given number, or at the end when --after
is omitted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		typ, err := models.ParseActivityType(addTyp)
		if err != nil {
			return &core.ValidationError{Field: models.FieldTyp, Reason: err.Error()}
		}

		after := core.End
		if addAfter > 0 {
			after = addAfter - 1
		}
		list := Session.Editor().Insert(after, models.ActivityRecord{
			Typ:                typ,
			Bezeichnung:        addBezeichnung,
			Handlungsgrundlage: addGrundlage,
		})
		if err := Session.SaveDraft(); err != nil {
			return err
		}
		printActivities(cmd.OutOrStdout(), list)
		return nil
	},
}

var activitiesRemoveCmd = &cobra.Command{
	Use:     "remove <nr>",
	Aliases: []string{"rm"},
	Short:   "Remove an activity",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		idx, err := parseNr(args[0])
		if err != nil {
			return err
		}
		list, err := Session.Editor().Remove(idx)
		if err != nil {
			return err
		}
		if err := Session.SaveDraft(); err != nil {
			return err
		}
		printActivities(cmd.OutOrStdout(), list)
		return nil
	},
}

var activitiesMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move an activity to a new position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		from, err := parseNr(args[0])
		if err != nil {
			return err
		}
		to, err := parseNr(args[1])
		if err != nil {
			return err
		}
		n := Session.Editor().Len()
		if from >= n || to >= n {
			return fmt.Errorf("move %d to %d: %w", from+1, to+1, core.ErrIndexOutOfRange)
		}
		list := Session.Editor().Move(from, to)
		if err := Session.SaveDraft(); err != nil {
			return err
		}
		printActivities(cmd.OutOrStdout(), list)
		return nil
	},
}

var activitiesSetCmd = &cobra.Command{
	Use:   "set <nr> <field> <value>",
	Short: "Change one field of an activity",
	Long: `Change one field of an activity. Fields: typ, bezeichnung, handlungsgrundlage.
The value may span several arguments.`,
	Args: cobra.MinimumNArgs(3),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return []string{models.FieldTyp, models.FieldBezeichnung, models.FieldHandlungsgrundlage}, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		idx, err := parseNr(args[0])
		if err != nil {
			return err
		}
		list, err := Session.Editor().EditField(idx, args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		if err := Session.SaveDraft(); err != nil {
			return err
		}
		printActivities(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	activitiesAddCmd.Flags().IntVar(&addAfter, "after", 0, "Insert after this number (default: append)")
	activitiesAddCmd.Flags().StringVar(&addTyp, "typ", string(models.ActivityActivityGroup), "ProcessClass or ActivityGroup")
	activitiesAddCmd.Flags().StringVarP(&addBezeichnung, "bezeichnung", "b", "", "Activity name")
	activitiesAddCmd.Flags().StringVarP(&addGrundlage, "grundlage", "g", "", "Legal basis (Handlungsgrundlage)")

	activitiesCmd.AddCommand(activitiesListCmd, activitiesAddCmd, activitiesRemoveCmd, activitiesMoveCmd, activitiesSetCmd)
	rootCmd.AddCommand(activitiesCmd)
}
