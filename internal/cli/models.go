package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	exportOutput string
	rateFeedback string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Work with generated BPMN models",
	Long: `Commands for the models produced by 'procmod generate' in the current
session. Models are addressed by ID or a unique ID prefix.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated models, unrated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		printModels(cmd.OutOrStdout(), Session.Models())
		return nil
	},
}

var modelsShowCmd = &cobra.Command{
	Use:               "show <id>",
	Aliases:           []string{"preview"},
	Short:             "Print a model's details and XML document",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModelIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		m, err := Session.FindModel(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(m.Name))
		fmt.Fprintf(out, "  %-10s %s\n", "ID:", m.ID)
		fmt.Fprintf(out, "  %-10s %s\n", "Created:", formatTime(m.CreatedAt))
		names := make([]string, 0, len(m.Sources))
		for _, src := range m.Sources {
			names = append(names, src.Name)
		}
		if len(names) > 0 {
			fmt.Fprintf(out, "  %-10s %s\n", "Sources:", strings.Join(names, ", "))
		}
		rating := "unrated"
		if m.Rated() {
			rating = fmt.Sprintf("%d/5", m.Rating)
		}
		fmt.Fprintf(out, "  %-10s %s\n", "Rating:", rating)
		if m.Feedback != "" {
			fmt.Fprintf(out, "  %-10s %s\n", "Feedback:", m.Feedback)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, m.Document.XML)
		return nil
	},
}

var modelsExportCmd = &cobra.Command{
	Use:               "export <id>",
	Short:             "Write a model document to a .bpmn file",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModelIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		m, err := Session.FindModel(args[0])
		if err != nil {
			return err
		}
		path := exportOutput
		if path == "" {
			path = m.Name + ".bpmn"
		}
		if err := os.WriteFile(path, []byte(m.Document.XML), 0o644); err != nil {
			return fmt.Errorf("writing model: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", path)
		return nil
	},
}

var modelsRateCmd = &cobra.Command{
	Use:               "rate <id> <1-5>",
	Short:             "Rate the quality of a generated model",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeModelIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid rating %q", args[1])
		}
		m, err := Session.RateModel(args[0], rating, rateFeedback)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rated %s with %d/5.\n", m.Name, m.Rating)
		return nil
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:               "delete <id>",
	Aliases:           []string{"rm"},
	Short:             "Remove a generated model from the session",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModelIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		m, err := Session.FindModel(args[0])
		if err != nil {
			return err
		}
		if err := Session.DeleteModel(m.ID, confirmPrompt(cmd, fmt.Sprintf("Delete model %s?", m.Name))); err != nil {
			return cancelledHint(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", m.Name)
		return nil
	},
}

var modelsArchiveCmd = &cobra.Command{
	Use:               "archive <id>",
	Short:             "Send a model and its sources to the archive",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModelIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		pkg, err := Session.ArchiveModel(ctx, args[0])
		if err != nil {
			return fmt.Errorf("archiving model: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived as %q (id %s).\n", pkg.Title, pkg.ID)
		return nil
	},
}

func init() {
	modelsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default <name>.bpmn)")
	modelsRateCmd.Flags().StringVar(&rateFeedback, "feedback", "", "Free-text feedback")

	modelsCmd.AddCommand(modelsListCmd, modelsShowCmd, modelsExportCmd, modelsRateCmd, modelsDeleteCmd, modelsArchiveCmd)
	rootCmd.AddCommand(modelsCmd)
}
