package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/pkg/models"
)

var historyKind string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved stage results",
	Long: `Commands for the local history of extraction, classification and
finalization results, most recent first. Entries are addressed by ID or a
unique ID prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		entries := Session.History().List()
		if historyKind != "" {
			filtered := entries[:0]
			for _, e := range entries {
				if string(e.Kind) == historyKind {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:               "show <id>",
	Short:             "Show one history entry",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHistoryIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := resolveHistoryID(args[0])
		if err != nil {
			return err
		}
		entry, err := Session.History().Recall(id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(entry.Title))
		fmt.Fprintf(out, "  %-14s %s\n", "ID:", entry.ID)
		fmt.Fprintf(out, "  %-14s %s\n", "Date:", formatTime(entry.Date))
		fmt.Fprintf(out, "  %-14s %s\n", "Kind:", entry.Kind)
		if entry.Final {
			fmt.Fprintf(out, "  %-14s %s\n", "Final:", finalStyle.Render("yes"))
		}
		if len(entry.Payload.Provenance.SourceFiles) > 0 {
			fmt.Fprintf(out, "  %-14s %s\n", "Sources:", strings.Join(entry.Payload.Provenance.SourceFiles, ", "))
		}
		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-14s %s\n", k+":", entry.Metadata[k])
		}
		fmt.Fprintln(out)

		switch entry.Kind {
		case models.HistoryClassification:
			printClassifications(out, entry.Payload.Classifications)
		default:
			printActivities(out, entry.Payload.Activities)
		}
		return nil
	},
}

var historyRecallCmd = &cobra.Command{
	Use:               "recall <id>",
	Short:             "Load a history entry into the current draft",
	Long:              `Replace the edited activity list (or the classification set) with the content of a history entry.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHistoryIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := resolveHistoryID(args[0])
		if err != nil {
			return err
		}
		entry, err := Session.RecallHistory(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recalled %s %q (%d items).\n", entry.Kind, entry.Title, entryItems(entry))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:               "delete <id>",
	Aliases:           []string{"rm"},
	Short:             "Delete a history entry",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHistoryIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := resolveHistoryID(args[0])
		if err != nil {
			return err
		}
		entry, err := Session.History().Recall(id)
		if err != nil {
			return err
		}
		confirm := confirmPrompt(cmd, fmt.Sprintf("Delete history entry %q from %s?", entry.Title, formatTime(entry.Date)))
		if err := Session.History().Remove(id, confirm); err != nil {
			return cancelledHint(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
		return nil
	},
}

// resolveHistoryID maps a full ID or unique prefix to a history entry ID.
func resolveHistoryID(ref string) (string, error) {
	var match string
	for _, e := range Session.History().List() {
		if e.ID == ref {
			return ref, nil
		}
		if ref != "" && strings.HasPrefix(e.ID, ref) {
			if match != "" {
				return "", &core.ValidationError{Field: "id", Reason: fmt.Sprintf("prefix %q matches more than one entry", ref)}
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("history %q: %w", ref, core.ErrEntryNotFound)
	}
	return match, nil
}

func init() {
	historyListCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by kind (activity_list, classification)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRecallCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
