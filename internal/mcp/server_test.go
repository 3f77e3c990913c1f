package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/internal/observability"
	"github.com/valter-silva-au/procmod/internal/storage"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// --- Fake implementations ---

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
}

func (f *fakeMetricsCalculator) Calculate(_ time.Time) (*observability.Metrics, error) {
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, nil
}

// --- Test helpers ---

func sampleActivities() models.ActivityList {
	return models.ActivityList{
		{Typ: models.ActivityProcessClass, Bezeichnung: "Antrag prüfen", Handlungsgrundlage: "§ 1"},
		{Typ: models.ActivityActivityGroup, Bezeichnung: "Bescheid erstellen", Handlungsgrundlage: "§ 2"},
		{Typ: models.ActivityActivityGroup, Bezeichnung: "Bescheid versenden", Handlungsgrundlage: "§ 3"},
	}
}

// newTestSession opens a session over a file store in a temp dir.
func newTestSession(t *testing.T) *core.Session {
	t.Helper()
	s := core.NewSession(core.SessionDeps{Store: storage.NewFileStore(t.TempDir())})
	if err := s.Open(); err != nil {
		t.Fatalf("opening session: %v", err)
	}
	return s
}

// seedActivities stores the sample list as the session draft.
func seedActivities(t *testing.T, sess *core.Session) {
	t.Helper()
	seedActivities(t, sess)
	if err := sess.SaveDraft(); err != nil {
		t.Fatalf("saving draft: %v", err)
	}
}

// callTool connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// callToolAllowError is like callTool but returns nil when the call fails
// at the protocol level (e.g. schema validation).
func callToolAllowError(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return nil
	}
	return result
}

// decode reads the structured output, falling back to the text content.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			t.Fatalf("marshalling structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshalling output: %v (text was: %s)", err, text)
	}
}

func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestListHistory(t *testing.T) {
	sess := newTestSession(t)
	if _, err := sess.History().Append(models.HistoryEntry{
		Kind:    models.HistoryActivityList,
		Title:   "Antragsverfahren",
		Payload: models.StageResult{Kind: models.ResultExtraction, Activities: sampleActivities()},
	}); err != nil {
		t.Fatalf("appending: %v", err)
	}
	if _, err := sess.History().Append(models.HistoryEntry{
		Kind:    models.HistoryClassification,
		Title:   "Klassifikation",
		Payload: models.StageResult{Kind: models.ResultClassification, Classifications: []models.ClassificationEntry{{SourceText: "a", ReferenceID: "P1"}}},
	}); err != nil {
		t.Fatalf("appending: %v", err)
	}
	srv := NewServer(sess, nil, nil, "test")

	result := callTool(t, srv, "list_history", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out listHistoryOutput
	decode(t, result, &out)

	if out.Count != 2 {
		t.Fatalf("expected 2 entries, got %d", out.Count)
	}
	if out.Entries[0].Kind != "classification" || out.Entries[0].Items != 1 {
		t.Errorf("newest entry = %+v", out.Entries[0])
	}
	if out.Entries[1].Title != "Antragsverfahren" || out.Entries[1].Items != 3 {
		t.Errorf("oldest entry = %+v", out.Entries[1])
	}
}

func TestListHistoryWithKindFilter(t *testing.T) {
	sess := newTestSession(t)
	for _, kind := range []models.HistoryKind{models.HistoryActivityList, models.HistoryClassification, models.HistoryActivityList} {
		if _, err := sess.History().Append(models.HistoryEntry{Kind: kind, Title: string(kind)}); err != nil {
			t.Fatalf("appending: %v", err)
		}
	}
	srv := NewServer(sess, nil, nil, "test")

	var out listHistoryOutput
	decode(t, callTool(t, srv, "list_history", map[string]any{"kind": "activity_list"}), &out)
	if out.Count != 2 {
		t.Errorf("expected 2 activity lists, got %d", out.Count)
	}
}

func TestRecallHistory(t *testing.T) {
	sess := newTestSession(t)
	entry, err := sess.History().Append(models.HistoryEntry{
		Kind:    models.HistoryActivityList,
		Title:   "Antragsverfahren",
		Payload: models.StageResult{Kind: models.ResultExtraction, Activities: sampleActivities()},
	})
	if err != nil {
		t.Fatalf("appending: %v", err)
	}
	srv := NewServer(sess, nil, nil, "test")

	result := callTool(t, srv, "recall_history", map[string]any{"id": entry.ID})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out recallHistoryOutput
	decode(t, result, &out)

	if out.Entry.ID != entry.ID || len(out.Activities) != 3 {
		t.Errorf("recall output = %+v", out)
	}
	if sess.Editor().Len() != 3 {
		t.Errorf("editor holds %d records after recall, want 3", sess.Editor().Len())
	}
	if len(sess.History().List()) != 1 {
		t.Error("recall must not change the history log")
	}
}

func TestRecallHistoryNotFound(t *testing.T) {
	srv := NewServer(newTestSession(t), nil, nil, "test")

	result := callTool(t, srv, "recall_history", map[string]any{"id": "missing"})
	if !result.IsError {
		t.Fatal("expected error result for unknown id")
	}
	if extractText(result) == "" {
		t.Fatal("expected error message in result content")
	}
}

func TestRecallHistoryMissingID(t *testing.T) {
	srv := NewServer(newTestSession(t), nil, nil, "test")

	result := callToolAllowError(t, srv, "recall_history", map[string]any{})
	if result == nil {
		return
	}
	if !result.IsError {
		t.Fatal("expected error result for missing id")
	}
}

func TestGetActivities(t *testing.T) {
	sess := newTestSession(t)
	seedActivities(t, sess)
	srv := NewServer(sess, nil, nil, "test")

	var out activitiesOutput
	decode(t, callTool(t, srv, "get_activities", map[string]any{}), &out)

	if out.Count != 3 {
		t.Fatalf("expected 3 activities, got %d", out.Count)
	}
	for i, a := range out.Activities {
		if a.Nr != i+1 {
			t.Errorf("activity %d has nr %d", i, a.Nr)
		}
	}
	if out.Activities[0].Typ != "ProcessClass" {
		t.Errorf("first typ = %s", out.Activities[0].Typ)
	}
}

func TestMoveActivity(t *testing.T) {
	sess := newTestSession(t)
	seedActivities(t, sess)
	srv := NewServer(sess, nil, nil, "test")

	result := callTool(t, srv, "move_activity", map[string]any{"from": 3, "to": 1})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out activitiesOutput
	decode(t, result, &out)

	want := []string{"Bescheid versenden", "Antrag prüfen", "Bescheid erstellen"}
	for i, name := range want {
		if out.Activities[i].Bezeichnung != name || out.Activities[i].Nr != i+1 {
			t.Errorf("position %d = %+v, want %s", i, out.Activities[i], name)
		}
	}
	if got := sess.Editor().List()[0].Bezeichnung; got != "Bescheid versenden" {
		t.Errorf("session editor not updated, first = %s", got)
	}
}

func TestMoveActivitySeesDraftWrittenElsewhere(t *testing.T) {
	store := storage.NewFileStore(t.TempDir())
	served := core.NewSession(core.SessionDeps{Store: store})
	if err := served.Open(); err != nil {
		t.Fatalf("opening served session: %v", err)
	}
	srv := NewServer(served, nil, nil, "test")

	// A second process extracts a new list after the server started.
	other := core.NewSession(core.SessionDeps{Store: store})
	if err := other.Open(); err != nil {
		t.Fatalf("opening second session: %v", err)
	}
	seedActivities(t, other)

	result := callTool(t, srv, "move_activity", map[string]any{"from": 1, "to": 2})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	reopened := core.NewSession(core.SessionDeps{Store: store})
	if err := reopened.Open(); err != nil {
		t.Fatalf("reopening session: %v", err)
	}
	got := reopened.Editor().List()
	want := []string{"Bescheid erstellen", "Antrag prüfen", "Bescheid versenden"}
	if len(got) != len(want) {
		t.Fatalf("saved draft has %d activities, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Bezeichnung != name {
			t.Errorf("position %d = %s, want %s", i+1, got[i].Bezeichnung, name)
		}
	}
}

func TestMoveActivityOutOfRange(t *testing.T) {
	sess := newTestSession(t)
	seedActivities(t, sess)
	srv := NewServer(sess, nil, nil, "test")

	result := callTool(t, srv, "move_activity", map[string]any{"from": 0, "to": 4})
	if !result.IsError {
		t.Fatal("expected error result for out-of-range positions")
	}
	if sess.Editor().List()[0].Bezeichnung != "Antrag prüfen" {
		t.Error("list changed after rejected move")
	}
}

func TestGetMetrics(t *testing.T) {
	oldest := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	newest := time.Date(2025, 1, 15, 16, 0, 0, 0, time.UTC)
	mc := &fakeMetricsCalculator{
		metrics: &observability.Metrics{
			Stages: map[string]observability.StageMetrics{
				"extraction": {Submitted: 4, Succeeded: 3, Failed: 1, AvgMillis: 850},
			},
			HistoryAppended: 5,
			Finalizations:   2,
			Sessions:        1,
			EventCount:      20,
			OldestEvent:     &oldest,
			NewestEvent:     &newest,
		},
	}
	srv := NewServer(newTestSession(t), mc, nil, "test")

	result := callTool(t, srv, "get_metrics", map[string]any{"since": "30d"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out metricsOutput
	decode(t, result, &out)

	ext := out.Stages["extraction"]
	if ext.Submitted != 4 || ext.Failed != 1 || ext.SuccessRate != 0.75 {
		t.Errorf("extraction = %+v", ext)
	}
	if out.Finalizations != 2 || out.HistoryAppended != 5 || out.EventCount != 20 {
		t.Errorf("totals = %+v", out)
	}
	if out.OldestEvent != "2025-01-10T08:00:00Z" {
		t.Errorf("oldest_event = %s", out.OldestEvent)
	}
}

func TestGetMetricsDisabled(t *testing.T) {
	srv := NewServer(newTestSession(t), nil, nil, "test")

	result := callTool(t, srv, "get_metrics", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error result when metrics calculator is nil")
	}
}

func TestGetMetricsBadSince(t *testing.T) {
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{}}
	srv := NewServer(newTestSession(t), mc, nil, "test")

	result := callTool(t, srv, "get_metrics", map[string]any{"since": "3w"})
	if !result.IsError {
		t.Fatal("expected error result for unsupported suffix")
	}
}

func TestGetAlerts(t *testing.T) {
	ae := &fakeAlertEngine{
		alerts: []observability.Alert{{
			ID:          "failures-generation",
			Condition:   observability.ConditionStageFailures,
			Severity:    observability.SeverityHigh,
			Message:     "generation failed 3 times in the last 24 hours",
			TriggeredAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		}},
	}
	srv := NewServer(newTestSession(t), nil, ae, "test")

	var out getAlertsOutput
	decode(t, callTool(t, srv, "get_alerts", map[string]any{}), &out)

	if out.Count != 1 || out.Alerts[0].Severity != "high" {
		t.Errorf("alerts = %+v", out)
	}
}

func TestGetAlertsDisabled(t *testing.T) {
	srv := NewServer(newTestSession(t), nil, nil, "test")

	result := callTool(t, srv, "get_alerts", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error result when alert engine is nil")
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"7d", now.AddDate(0, 0, -7), false},
		{"24h", now.Add(-24 * time.Hour), false},
		{"30d", now.AddDate(0, 0, -30), false},
		{"x", time.Time{}, true},
		{"7w", time.Time{}, true},
		{"abcd", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSince(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSince(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
