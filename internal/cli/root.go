package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// assumeYes answers every confirmation prompt with yes.
var assumeYes bool

var rootCmd = &cobra.Command{
	Use:   "procmod",
	Short: "Process modeler - turn legal texts into BPMN process models",
	Long: `procmod drives a process-modeling backend from the command line.

Source documents (PDF, text, markdown, JSON) are sent through four stages:
extraction of an activity list, classification against reference patterns,
generation of a BPMN model and finalization of the edited activity list.
Stage results are kept in a local history and the working draft survives
between invocations until logout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "procmod %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
