package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// Style definitions shared by the plain commands.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	finalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
)

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printActivities(w io.Writer, list models.ActivityList) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No activities.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NR\tTYP\tBEZEICHNUNG\tHANDLUNGSGRUNDLAGE")
	for _, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.Nr, a.Typ, a.Bezeichnung, a.Handlungsgrundlage)
	}
	_ = tw.Flush()
}

func printClassifications(w io.Writer, entries []models.ClassificationEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No classifications.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tREFERENCE\tLABEL\tSOURCE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.ReferenceID, e.ReferenceLabel, truncate(e.SourceText, 60))
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, entries []models.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tKIND\tTITLE\tITEMS")
	for _, e := range entries {
		title := e.Title
		if e.Final {
			title = finalStyle.Render("[final]") + " " + title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", e.ID, e.Date.Local().Format(dateLayout), e.Kind, title, entryItems(e))
	}
	_ = tw.Flush()
}

func printModels(w io.Writer, list []models.GeneratedModel) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No generated models.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tRATING\tSOURCES")
	for _, m := range list {
		rating := dimStyle.Render("unrated")
		if m.Rated() {
			rating = strings.Repeat("*", m.Rating)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", shortID(m.ID), m.Name, m.CreatedAt.Local().Format(dateLayout), rating, len(m.Sources))
	}
	_ = tw.Flush()
}

func entryItems(e models.HistoryEntry) int {
	if e.Kind == models.HistoryClassification {
		return len(e.Payload.Classifications)
	}
	return len(e.Payload.Activities)
}

// shortID abbreviates random model IDs. Commands accept any unique prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}
