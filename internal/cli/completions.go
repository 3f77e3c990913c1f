package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completeHistoryIDs completes history entry IDs with their title as the
// description.
func completeHistoryIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Session == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, e := range Session.History().List() {
		if toComplete == "" || strings.HasPrefix(e.ID, toComplete) {
			ids = append(ids, e.ID+"\t"+string(e.Kind)+": "+e.Title)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeModelIDs completes generated model IDs with their name.
func completeModelIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Session == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, m := range Session.Models() {
		if toComplete == "" || strings.HasPrefix(m.ID, toComplete) {
			ids = append(ids, m.ID+"\t"+m.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeSourceFiles restricts file completion to supported inputs.
func completeSourceFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"pdf", "txt", "md", "json"}, cobra.ShellCompDirectiveFilterFileExt
}

func init() {
	for _, c := range []*cobra.Command{extractCmd, classifyCmd, generateCmd} {
		c.ValidArgsFunction = completeSourceFiles
	}
}
