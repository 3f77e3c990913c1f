package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
)

var (
	extractService string
	extractNotes   string
	extractPattern string

	generateTitle string
	generateNotes string

	finalizeService string
	finalizeNotes   string
	finalizeEditor  string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract an activity list from source documents",
	Long: `Send the text of the given documents to the extraction stage.

The returned activity list replaces the one being edited and is saved to
the history under the service label. Supported inputs: .pdf, .txt, .md, .json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		files, err := Extractor.ExtractAll(ctx, args)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}

		res, err := Session.Extract(ctx, core.ExtractionInput{
			Files:              files,
			ServiceLabel:       extractService,
			Notes:              extractNotes,
			ReferencePatternID: extractPattern,
		})
		if err != nil {
			return fmt.Errorf("extraction: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Extracted %d activities from %d file(s).\n\n", len(res.Activities), len(files))
		printActivities(out, res.Activities)
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify source documents against reference patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		files, err := Extractor.ExtractAll(ctx, args)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}

		res, err := Session.Classify(ctx, core.ClassificationInput{Files: files})
		if err != nil {
			return fmt.Errorf("classification: %w", err)
		}

		printClassifications(cmd.OutOrStdout(), res.Classifications)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <file>...",
	Short: "Generate a BPMN model from source documents",
	Long: `Send the documents to the generation stage. When an activity list is being
edited it is uploaded together with the files.

The model is added to the generated models list; see 'procmod models'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		files, err := Extractor.ExtractAll(ctx, args)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}

		m, err := Session.Generate(ctx, core.GenerationInput{
			Title: generateTitle,
			Files: files,
			Notes: generateNotes,
		})
		if err != nil {
			return fmt.Errorf("generation: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s (id %s, %d bytes).\n", m.Name, shortID(m.ID), len(m.Document.XML))
		return nil
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Submit the edited activity list as final",
	Long: `Submit the activity list currently being edited to the finalization stage.
On success a final entry is added to the history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		entry, err := Session.Finalize(ctx, core.FinalizationInput{
			ServiceLabel: finalizeService,
			Notes:        finalizeNotes,
			Editor:       finalizeEditor,
		})
		if err != nil {
			return fmt.Errorf("finalization: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Finalized %d activities for %q (history %s).\n",
			len(entry.Payload.Activities), entry.Title, entry.ID)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractService, "service", "s", "", "Service label (required)")
	extractCmd.Flags().StringVar(&extractNotes, "notes", "", "Notes passed to the backend")
	extractCmd.Flags().StringVar(&extractPattern, "pattern", "", "Reference pattern id")

	generateCmd.Flags().StringVarP(&generateTitle, "title", "t", "", "Model title (required)")
	generateCmd.Flags().StringVar(&generateNotes, "notes", "", "Notes passed to the backend")

	finalizeCmd.Flags().StringVarP(&finalizeService, "service", "s", "", "Service label (required)")
	finalizeCmd.Flags().StringVar(&finalizeNotes, "notes", "", "Notes passed to the backend")
	finalizeCmd.Flags().StringVar(&finalizeEditor, "editor", "", "Editor name (defaults to the logged-in editor)")

	rootCmd.AddCommand(extractCmd, classifyCmd, generateCmd, finalizeCmd)
}
