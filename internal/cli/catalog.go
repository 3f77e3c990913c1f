package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/pkg/models"
)

var (
	archiveTitle string
	archiveModel string

	patternTitle string
	patternModel string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the backend archive of source texts and reference models",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		pkgs, err := Session.Archive().List(ctx)
		if err != nil {
			return fmt.Errorf("listing archive: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(pkgs) == 0 {
			fmt.Fprintln(out, "Archive is empty.")
			return nil
		}
		tw := newTable(out)
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tSOURCE")
		for _, p := range pkgs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, formatTime(p.CreatedAt), truncate(p.CombinedSourceText, 40))
		}
		return tw.Flush()
	},
}

var archiveCreateCmd = &cobra.Command{
	Use:   "create --title <title> --model <file.bpmn> <source>...",
	Short: "Upload source documents and a reference model to the archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		name, xml, err := readModelFile(archiveModel)
		if err != nil {
			return err
		}
		files, err := Extractor.ExtractAll(ctx, args)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}

		pkg, err := Session.Archive().Create(ctx, models.ArchiveCreate{
			Title:       archiveTitle,
			SourceFiles: files,
			ModelName:   name,
			ModelXML:    xml,
		})
		if err != nil {
			return fmt.Errorf("creating archive package: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %q (id %s).\n", archiveTitle, pkg.ID)
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an archive package",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		confirm := confirmPrompt(cmd, fmt.Sprintf("Delete archive package %s?", args[0]))
		if err := Session.Archive().Delete(ctx, args[0], confirm); err != nil {
			return cancelledHint(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted archive package %s.\n", args[0])
		return nil
	},
}

var patternsCmd = &cobra.Command{
	Use:     "patterns",
	Aliases: []string{"pattern"},
	Short:   "Manage the backend catalog of reference patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reference patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		pats, err := Session.Patterns().List(ctx)
		if err != nil {
			return fmt.Errorf("listing patterns: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(pats) == 0 {
			fmt.Fprintln(out, "No patterns.")
			return nil
		}
		tw := newTable(out)
		fmt.Fprintln(tw, "ID\tTITLE\tSIZE")
		for _, p := range pats {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ID, p.Title, len(p.RawModelDocument))
		}
		return tw.Flush()
	},
}

var patternsCreateCmd = &cobra.Command{
	Use:   "create --title <title> --model <file.bpmn>",
	Short: "Upload a reference pattern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		name, xml, err := readModelFile(patternModel)
		if err != nil {
			return err
		}
		rec, err := Session.Patterns().Create(ctx, models.PatternCreate{
			Title:     patternTitle,
			ModelName: name,
			ModelXML:  xml,
		})
		if err != nil {
			return fmt.Errorf("creating pattern: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created pattern %q (id %s).\n", patternTitle, rec.ID)
		return nil
	},
}

var patternsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a reference pattern",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		confirm := confirmPrompt(cmd, fmt.Sprintf("Delete pattern %s?", args[0]))
		if err := Session.Patterns().Delete(ctx, args[0], confirm); err != nil {
			return cancelledHint(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted pattern %s.\n", args[0])
		return nil
	},
}

var patternsRenameCmd = &cobra.Command{
	Use:   "rename <id> <new title>",
	Short: "Rename a reference pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		ctx, stop := commandContext(cmd)
		defer stop()

		if err := Session.Patterns().Rename(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("renaming pattern: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed pattern %s to %q.\n", args[0], args[1])
		return nil
	},
}

// readModelFile loads a model document from disk. An empty path is left to
// the store's validation.
func readModelFile(path string) (name, xml string, err error) {
	if path == "" {
		return "", "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading model file: %w", err)
	}
	return filepath.Base(path), core.StripCodeFence(string(data)), nil
}

func init() {
	archiveCreateCmd.Flags().StringVarP(&archiveTitle, "title", "t", "", "Package title (required)")
	archiveCreateCmd.Flags().StringVarP(&archiveModel, "model", "m", "", "Reference model file (required)")
	archiveCreateCmd.ValidArgsFunction = completeSourceFiles

	patternsCreateCmd.Flags().StringVarP(&patternTitle, "title", "t", "", "Pattern title (required)")
	patternsCreateCmd.Flags().StringVarP(&patternModel, "model", "m", "", "Model file (required)")

	archiveCmd.AddCommand(archiveListCmd, archiveCreateCmd, archiveDeleteCmd)
	patternsCmd.AddCommand(patternsListCmd, patternsCreateCmd, patternsDeleteCmd, patternsRenameCmd)
	rootCmd.AddCommand(archiveCmd, patternsCmd)
}
