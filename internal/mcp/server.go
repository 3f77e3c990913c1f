// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the procmod session as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/internal/observability"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// Server wraps a session and exposes it as MCP tools. The session is
// reloaded from the store before each session tool runs, so commands run
// from the CLI while the server is up are not overwritten.
type Server struct {
	server      *gomcp.Server
	mu          sync.Mutex
	session     *core.Session
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over the given session.
// metricsCalc and alertEngine may be nil if the event log is disabled.
func NewServer(session *core.Session, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		session:     session,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "procmod", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listHistoryInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"filter by entry kind (activity_list or classification)"`
}

type historySummary struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Final  bool   `json:"final"`
	Editor string `json:"editor,omitempty"`
	Items  int    `json:"items"`
}

type listHistoryOutput struct {
	Entries []historySummary `json:"entries"`
	Count   int              `json:"count"`
}

type recallHistoryInput struct {
	ID string `json:"id" jsonschema:"required,the history entry id"`
}

type recallHistoryOutput struct {
	Entry           historySummary               `json:"entry"`
	Activities      []activityOutput             `json:"activities,omitempty"`
	Classifications []models.ClassificationEntry `json:"classifications,omitempty"`
}

type getActivitiesInput struct{}

type activityOutput struct {
	Nr                 int    `json:"nr"`
	Typ                string `json:"typ"`
	Bezeichnung        string `json:"bezeichnung"`
	Handlungsgrundlage string `json:"handlungsgrundlage"`
}

type activitiesOutput struct {
	Activities []activityOutput `json:"activities"`
	Count      int              `json:"count"`
}

type moveActivityInput struct {
	From int `json:"from" jsonschema:"required,current number (nr) of the activity, starting at 1"`
	To   int `json:"to" jsonschema:"required,target number (nr), starting at 1"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type stageMetricsOutput struct {
	Submitted   int     `json:"submitted"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	AvgMillis   int64   `json:"avg_duration_ms"`
}

type metricsOutput struct {
	Stages          map[string]stageMetricsOutput `json:"stages"`
	HistoryAppended int                           `json:"history_appended"`
	HistoryRemoved  int                           `json:"history_removed"`
	Finalizations   int                           `json:"finalizations"`
	CatalogChanges  int                           `json:"catalog_changes"`
	Sessions        int                           `json:"sessions"`
	EventCount      int                           `json:"event_count"`
	OldestEvent     string                        `json:"oldest_event,omitempty"`
	NewestEvent     string                        `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_history",
		Description: "List saved history entries, newest first. Each entry is an activity list or a classification set; final marks finalized lists.",
	}, s.handleListHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "recall_history",
		Description: "Load a history entry back into the working session and return its content. The history itself is not changed.",
	}, s.handleRecallHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_activities",
		Description: "Return the activity list currently being edited, in order.",
	}, s.handleGetActivities)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "move_activity",
		Description: "Move one activity to a new position. Positions are the 1-based nr values; all activities are renumbered.",
	}, s.handleMoveActivity)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get per-stage submission, success and failure counts plus history and finalization totals from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (repeated stage failures, stale unfinalized activity lists).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

// reload refreshes the session from the store. Callers hold s.mu.
func (s *Server) reload() *gomcp.CallToolResult {
	if err := s.session.Reload(); err != nil {
		return errorResult(fmt.Sprintf("reloading session: %s", err))
	}
	return nil
}

func (s *Server) handleListHistory(_ context.Context, _ *gomcp.CallToolRequest, input listHistoryInput) (*gomcp.CallToolResult, listHistoryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.reload(); res != nil {
		return res, listHistoryOutput{}, nil
	}
	entries := s.session.History().List()

	out := listHistoryOutput{Entries: make([]historySummary, 0, len(entries))}
	for _, e := range entries {
		if input.Kind != "" && string(e.Kind) != input.Kind {
			continue
		}
		out.Entries = append(out.Entries, summarize(e))
	}
	out.Count = len(out.Entries)
	return nil, out, nil
}

func (s *Server) handleRecallHistory(_ context.Context, _ *gomcp.CallToolRequest, input recallHistoryInput) (*gomcp.CallToolResult, recallHistoryOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), recallHistoryOutput{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.reload(); res != nil {
		return res, recallHistoryOutput{}, nil
	}
	entry, err := s.session.RecallHistory(input.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("recalling %s: %s", input.ID, err)), recallHistoryOutput{}, nil
	}

	out := recallHistoryOutput{
		Entry:           summarize(entry),
		Activities:      activitiesToOutput(entry.Payload.Activities),
		Classifications: entry.Payload.Classifications,
	}
	return nil, out, nil
}

func (s *Server) handleGetActivities(_ context.Context, _ *gomcp.CallToolRequest, _ getActivitiesInput) (*gomcp.CallToolResult, activitiesOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.reload(); res != nil {
		return res, activitiesOutput{}, nil
	}
	list := s.session.Editor().List()
	return nil, activitiesOutput{Activities: activitiesToOutput(list), Count: len(list)}, nil
}

func (s *Server) handleMoveActivity(_ context.Context, _ *gomcp.CallToolRequest, input moveActivityInput) (*gomcp.CallToolResult, activitiesOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.reload(); res != nil {
		return res, activitiesOutput{}, nil
	}
	n := s.session.Editor().Len()
	if input.From < 1 || input.From > n || input.To < 1 || input.To > n {
		return errorResult(fmt.Sprintf("from and to must be between 1 and %d", n)), activitiesOutput{}, nil
	}

	list := s.session.Editor().Move(input.From-1, input.To-1)
	if err := s.session.SaveDraft(); err != nil {
		return errorResult(fmt.Sprintf("saving draft: %s", err)), activitiesOutput{}, nil
	}
	return nil, activitiesOutput{Activities: activitiesToOutput(list), Count: len(list)}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := emptyMetricsOutput()
	for stage, m := range metrics.Stages {
		out.Stages[stage] = stageMetricsOutput{
			Submitted:   m.Submitted,
			Succeeded:   m.Succeeded,
			Failed:      m.Failed,
			SuccessRate: m.SuccessRate(),
			AvgMillis:   m.AvgMillis,
		}
	}
	out.HistoryAppended = metrics.HistoryAppended
	out.HistoryRemoved = metrics.HistoryRemoved
	out.Finalizations = metrics.Finalizations
	out.CatalogChanges = metrics.CatalogChanges
	out.Sessions = metrics.Sessions
	out.EventCount = metrics.EventCount
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func summarize(e models.HistoryEntry) historySummary {
	items := len(e.Payload.Activities)
	if e.Kind == models.HistoryClassification {
		items = len(e.Payload.Classifications)
	}
	return historySummary{
		ID:     e.ID,
		Date:   e.Date.Format(time.RFC3339),
		Kind:   string(e.Kind),
		Title:  e.Title,
		Final:  e.Final,
		Editor: e.Metadata[models.MetaEditor],
		Items:  items,
	}
}

func activitiesToOutput(list models.ActivityList) []activityOutput {
	out := make([]activityOutput, len(list))
	for i, a := range list {
		out[i] = activityOutput{
			Nr:                 a.Nr,
			Typ:                string(a.Typ),
			Bezeichnung:        a.Bezeichnung,
			Handlungsgrundlage: a.Handlungsgrundlage,
		}
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{Stages: make(map[string]stageMetricsOutput)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
