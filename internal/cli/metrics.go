package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	procmcp "github.com/valter-silva-au/procmod/internal/mcp"
	"github.com/valter-silva-au/procmod/pkg/models"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display stage and history metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include submissions, successes and failures per stage, average stage
duration, history entries written and finalizations.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions started:", metrics.Sessions)
		fmt.Fprintf(out, "  %-24s %d\n", "History entries:", metrics.HistoryAppended)
		fmt.Fprintf(out, "  %-24s %d\n", "Finalizations:", metrics.Finalizations)
		fmt.Fprintf(out, "  %-24s %d\n", "History deletions:", metrics.HistoryRemoved)
		fmt.Fprintf(out, "  %-24s %d\n", "Catalog changes:", metrics.CatalogChanges)

		if len(metrics.Stages) > 0 {
			fmt.Fprintln(out, "\n  Stages:")
			tw := newTable(out)
			fmt.Fprintln(tw, "    STAGE\tSUBMITTED\tSUCCEEDED\tFAILED\tSUCCESS\tAVG")
			for _, st := range models.AllStages {
				m, ok := metrics.Stages[string(st)]
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "    %s\t%d\t%d\t%d\t%.0f%%\t%s\n", st, m.Submitted, m.Succeeded, m.Failed,
					m.SuccessRate()*100, time.Duration(m.AvgMillis)*time.Millisecond)
			}
			_ = tw.Flush()
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

// parseSinceDuration parses "7d", "30d" or "24h". Empty means 7d.
func parseSinceDuration(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "7d"
	}
	return procmcp.ParseSince(s, time.Now().UTC())
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
