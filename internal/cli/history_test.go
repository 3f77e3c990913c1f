package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// seedHistory appends three entries with fixed IDs, oldest first.
func seedHistory(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entries := []models.HistoryEntry{
		{
			ID: "aaaa-1111", Date: base, Kind: models.HistoryActivityList, Title: "Antragsverfahren",
			Payload: models.StageResult{Kind: models.ResultExtraction, Activities: sampleList()},
		},
		{
			ID: "aaaa-2222", Date: base.Add(time.Hour), Kind: models.HistoryClassification, Title: "bescheid.md",
			Payload: models.StageResult{Kind: models.ResultClassification, Classifications: []models.ClassificationEntry{
				{SourceText: "§ 1", ReferenceID: "P-7", ReferenceLabel: "Antragsprüfung"},
			}},
		},
		{
			ID: "bbbb-3333", Date: base.Add(2 * time.Hour), Kind: models.HistoryActivityList, Title: "Widerspruch", Final: true,
			Payload:  models.StageResult{Kind: models.ResultExtraction, Activities: sampleList()[:1]},
			Metadata: map[string]string{models.MetaEditor: "m.muster", models.MetaFinal: "true"},
		},
	}
	for _, e := range entries {
		if _, err := Session.History().Append(e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}
}

func resetHistoryKind(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { historyKind = "" })
	historyKind = ""
}

func TestHistoryList(t *testing.T) {
	setupCLI(t)
	resetHistoryKind(t)
	seedHistory(t)

	out, err := run(t, historyListCmd, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first := strings.Index(out, "Widerspruch")
	last := strings.Index(out, "Antragsverfahren")
	if first < 0 || last < 0 || first > last {
		t.Errorf("expected most recent entry first:\n%s", out)
	}
	if !strings.Contains(out, "[final]") {
		t.Errorf("final marker missing:\n%s", out)
	}

	historyKind = string(models.HistoryClassification)
	out, err = run(t, historyListCmd, "")
	if err != nil {
		t.Fatalf("list --kind: %v", err)
	}
	if !strings.Contains(out, "bescheid.md") || strings.Contains(out, "Widerspruch") {
		t.Errorf("kind filter not applied:\n%s", out)
	}
}

func TestResolveHistoryID(t *testing.T) {
	setupCLI(t)
	seedHistory(t)

	tests := []struct {
		ref     string
		want    string
		wantErr error
	}{
		{ref: "aaaa-1111", want: "aaaa-1111"},
		{ref: "bbbb", want: "bbbb-3333"},
		{ref: "aaaa-2", want: "aaaa-2222"},
		{ref: "cccc", wantErr: core.ErrEntryNotFound},
		{ref: "", wantErr: core.ErrEntryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveHistoryID(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("resolveHistoryID(%q) = %q, %v", tt.ref, got, err)
			}
		})
	}

	_, err := resolveHistoryID("aaaa")
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ambiguous prefix: expected ValidationError, got %v", err)
	}
}

func TestHistoryShow(t *testing.T) {
	setupCLI(t)
	seedHistory(t)

	out, err := run(t, historyShowCmd, "", "bbbb")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Widerspruch", "bbbb-3333", "editor:", "m.muster", "Antrag prüfen"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, historyShowCmd, "", "aaaa-2")
	if err != nil {
		t.Fatalf("show classification: %v", err)
	}
	if !strings.Contains(out, "P-7") {
		t.Errorf("classification table missing:\n%s", out)
	}
}

func TestHistoryRecall(t *testing.T) {
	setupCLI(t)
	seedHistory(t)
	Session.Editor().ReplaceAll(models.ActivityList{{Bezeichnung: "alt"}})

	out, err := run(t, historyRecallCmd, "", "aaaa-1")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !strings.Contains(out, `Recalled activity_list "Antragsverfahren" (3 items).`) {
		t.Errorf("unexpected output:\n%s", out)
	}
	assertOrder(t, Session.Editor().List(), "Antrag prüfen", "Bescheid erstellen", "Bescheid versenden")
	if len(Session.History().List()) != 3 {
		t.Error("recall changed the history log")
	}
}

func TestHistoryDelete_Declined(t *testing.T) {
	setupCLI(t)
	seedHistory(t)

	out, err := run(t, historyDeleteCmd, "n\n", "bbbb")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "[y/N]") || !strings.Contains(out, "Cancelled.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if len(Session.History().List()) != 3 {
		t.Error("entry removed without confirmation")
	}
}

func TestHistoryDelete_Confirmed(t *testing.T) {
	setupCLI(t)
	seedHistory(t)

	out, err := run(t, historyDeleteCmd, "y\n", "bbbb")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted bbbb-3333.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := Session.History().Recall("bbbb-3333"); !errors.Is(err, core.ErrEntryNotFound) {
		t.Errorf("entry still present: %v", err)
	}
}

func TestHistoryDelete_AssumeYes(t *testing.T) {
	setupCLI(t)
	seedHistory(t)
	assumeYes = true

	out, err := run(t, historyDeleteCmd, "", "aaaa-1111")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.Contains(out, "[y/N]") {
		t.Errorf("prompted despite --yes:\n%s", out)
	}
	if len(Session.History().List()) != 2 {
		t.Error("entry not removed")
	}
}

func TestHistoryDelete_NotFound(t *testing.T) {
	setupCLI(t)
	seedHistory(t)

	_, err := run(t, historyDeleteCmd, "y\n", "zzzz")
	if !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}
