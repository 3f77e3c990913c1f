package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// SessionKey is the namespace key the session draft is stored under.
const SessionKey = "procmod.session.v1"

// SessionDeps are the collaborators a Session is built from. Events and
// Logger may be nil.
type SessionDeps struct {
	Backend  Backend
	Archive  ArchiveBackend
	Patterns PatternBackend
	Store    KeyValueStore
	Events   EventLogger
	Logger   *slog.Logger
}

// Session owns the working state of one operator: the activity list, the
// stage orchestrator, the history log, the catalogs and the generated
// models. It replaces any process-wide state and is shared by the CLI, the
// editor TUI and the MCP server.
type Session struct {
	editor   ActivityListEditor
	pipeline PipelineOrchestrator
	history  HistoryStore
	archive  ArchiveStore
	patterns PatternStore

	store  KeyValueStore
	events EventLogger
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	editorID  string
	startedAt time.Time
	models    []models.GeneratedModel
}

// NewSession wires a session. Call Open to load persisted state.
func NewSession(deps SessionDeps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	editor := NewActivityListEditor(nil)
	history := NewHistoryStore(deps.Store, logger, deps.Events)
	return &Session{
		editor:   editor,
		pipeline: NewPipelineOrchestrator(deps.Backend, editor, history, deps.Events, logger),
		history:  history,
		archive:  NewArchiveStore(deps.Archive, deps.Events, logger),
		patterns: NewPatternStore(deps.Patterns, deps.Events, logger),
		store:    deps.Store,
		events:   deps.Events,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}
}

// Open loads the history log and the saved draft. An unreadable draft is
// discarded with a warning.
func (s *Session) Open() error {
	return s.load(true)
}

// Reload re-reads the history log and the draft so changes written by
// another process become visible. Unsaved in-memory edits are replaced.
func (s *Session) Reload() error {
	return s.load(false)
}

func (s *Session) load(starting bool) error {
	if err := s.history.Load(); err != nil {
		return err
	}

	data, err := s.store.Get(SessionKey)
	if err != nil {
		return &PersistenceError{Op: "load session", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var draft models.SessionDraft
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &draft); err != nil {
			s.logger.Warn("discarding unreadable session draft", "error", &PersistenceError{Op: "decode session", Err: err})
			draft = models.SessionDraft{}
		}
	}
	if draft.StartedAt.IsZero() {
		draft.StartedAt = s.now().UTC()
		if starting {
			s.logEvent("session.started", map[string]any{"editor": draft.Editor})
		}
	}

	s.editorID = draft.Editor
	s.startedAt = draft.StartedAt
	s.models = draft.Models
	s.editor.ReplaceAll(draft.Activities)
	s.pipeline.SetClassifications(draft.Classifications)
	return nil
}

func (s *Session) Editor() ActivityListEditor     { return s.editor }
func (s *Session) Pipeline() PipelineOrchestrator { return s.pipeline }
func (s *Session) History() HistoryStore          { return s.history }
func (s *Session) Archive() ArchiveStore          { return s.archive }
func (s *Session) Patterns() PatternStore         { return s.patterns }

// EditorName returns the name recorded at login, if any.
func (s *Session) EditorName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editorID
}

// StartedAt returns when the current draft was started.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Login records the editor name. There is no authentication.
func (s *Session) Login(editor string) error {
	editor = strings.TrimSpace(editor)
	if editor == "" {
		return &ValidationError{Field: "editor", Reason: "must not be empty"}
	}
	s.mu.Lock()
	s.editorID = editor
	s.mu.Unlock()
	return s.SaveDraft()
}

// Logout discards the draft: activity list, classifications, generated
// models and editor name. The history log is kept.
func (s *Session) Logout() error {
	s.mu.Lock()
	editor := s.editorID
	s.editorID = ""
	s.models = nil
	s.startedAt = time.Time{}
	s.mu.Unlock()

	s.editor.ReplaceAll(nil)
	s.pipeline.SetClassifications(nil)
	for _, st := range models.AllStages {
		s.pipeline.Acknowledge(st)
	}
	if err := s.store.Delete(SessionKey); err != nil {
		return &PersistenceError{Op: "delete session", Err: err}
	}
	s.logEvent("session.ended", map[string]any{"editor": editor})
	return nil
}

// SaveDraft persists the current working state.
func (s *Session) SaveDraft() error {
	s.mu.Lock()
	if s.startedAt.IsZero() {
		s.startedAt = s.now().UTC()
	}
	draft := models.SessionDraft{
		Editor:          s.editorID,
		StartedAt:       s.startedAt,
		Activities:      s.editor.List(),
		Classifications: s.pipeline.Classifications(),
		Models:          append([]models.GeneratedModel(nil), s.models...),
	}
	s.mu.Unlock()

	data, err := yaml.Marshal(draft)
	if err != nil {
		return &PersistenceError{Op: "encode session", Err: err}
	}
	if err := s.store.Put(SessionKey, data); err != nil {
		return &PersistenceError{Op: "write session", Err: err}
	}
	return nil
}

// Extract runs the extraction stage and saves the draft on success.
func (s *Session) Extract(ctx context.Context, in ExtractionInput) (models.StageResult, error) {
	res, err := s.pipeline.SubmitExtraction(ctx, in)
	if err != nil {
		return res, err
	}
	return res, s.SaveDraft()
}

// Classify runs the classification stage and saves the draft on success.
func (s *Session) Classify(ctx context.Context, in ClassificationInput) (models.StageResult, error) {
	res, err := s.pipeline.SubmitClassification(ctx, in)
	if err != nil {
		return res, err
	}
	return res, s.SaveDraft()
}

// Generate runs the generation stage and adds the document to the
// generated models list.
func (s *Session) Generate(ctx context.Context, in GenerationInput) (models.GeneratedModel, error) {
	res, err := s.pipeline.SubmitGeneration(ctx, in)
	if err != nil {
		return models.GeneratedModel{}, err
	}

	created := s.now()
	m := models.GeneratedModel{
		ID:        uuid.NewString(),
		Name:      ModelName(in.Title, created),
		Sources:   append([]models.SourceFile(nil), in.Files...),
		CreatedAt: created.UTC(),
		Document:  *res.Model,
	}
	s.mu.Lock()
	s.models = append(s.models, m)
	s.mu.Unlock()
	return m, s.SaveDraft()
}

// Finalize submits the current activity list. The logged-in editor is used
// when in.Editor is empty.
func (s *Session) Finalize(ctx context.Context, in FinalizationInput) (models.HistoryEntry, error) {
	if in.Editor == "" {
		in.Editor = s.EditorName()
	}
	return s.pipeline.SubmitFinalization(ctx, in)
}

// RecallHistory loads a history entry back into the working state: an
// activity list into the editor or a classification set into the pipeline.
// The history log itself is not changed.
func (s *Session) RecallHistory(id string) (models.HistoryEntry, error) {
	entry, err := s.history.Recall(id)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	switch entry.Kind {
	case models.HistoryActivityList:
		s.editor.ReplaceAll(entry.Payload.Activities)
	case models.HistoryClassification:
		s.pipeline.SetClassifications(entry.Payload.Classifications)
	}
	return entry, s.SaveDraft()
}

// Models returns the generated models, unrated first, each group newest
// first.
func (s *Session) Models() []models.GeneratedModel {
	s.mu.Lock()
	out := append([]models.GeneratedModel(nil), s.models...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rated() != out[j].Rated() {
			return !out[i].Rated()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FindModel resolves a model by full ID or unique ID prefix.
func (s *Session) FindModel(ref string) (models.GeneratedModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.modelIndex(ref)
	if err != nil {
		return models.GeneratedModel{}, err
	}
	return s.models[idx], nil
}

// RateModel records a 1 to 5 quality rating with optional feedback.
func (s *Session) RateModel(ref string, rating int, feedback string) (models.GeneratedModel, error) {
	if rating < 1 || rating > 5 {
		return models.GeneratedModel{}, &ValidationError{Field: "rating", Reason: fmt.Sprintf("must be between 1 and 5, got %d", rating)}
	}
	s.mu.Lock()
	idx, err := s.modelIndex(ref)
	if err != nil {
		s.mu.Unlock()
		return models.GeneratedModel{}, err
	}
	s.models[idx].Rating = rating
	s.models[idx].Feedback = feedback
	m := s.models[idx]
	s.mu.Unlock()
	return m, s.SaveDraft()
}

// DeleteModel removes a generated model once confirm returns true.
func (s *Session) DeleteModel(ref string, confirm Confirm) error {
	s.mu.Lock()
	idx, err := s.modelIndex(ref)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if confirm == nil || !confirm() {
		s.mu.Unlock()
		return ErrConfirmationRequired
	}
	s.models = append(s.models[:idx], s.models[idx+1:]...)
	s.mu.Unlock()
	return s.SaveDraft()
}

// ArchiveModel sends a generated model and its sources to the archive.
func (s *Session) ArchiveModel(ctx context.Context, ref string) (models.ArchivePackage, error) {
	m, err := s.FindModel(ref)
	if err != nil {
		return models.ArchivePackage{}, err
	}
	return s.archive.Create(ctx, models.ArchiveCreate{
		Title:       m.Name,
		SourceFiles: m.Sources,
		ModelName:   m.Name + ".bpmn",
		ModelXML:    m.Document.XML,
	})
}

func (s *Session) modelIndex(ref string) (int, error) {
	if ref == "" {
		return -1, fmt.Errorf("model %q: %w", ref, ErrEntryNotFound)
	}
	found := -1
	for i, m := range s.models {
		if m.ID == ref {
			return i, nil
		}
		if strings.HasPrefix(m.ID, ref) {
			if found >= 0 {
				return -1, &ValidationError{Field: "model", Reason: fmt.Sprintf("id prefix %q is ambiguous", ref)}
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("model %q: %w", ref, ErrEntryNotFound)
	}
	return found, nil
}

func (s *Session) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.logger.Debug("event log write failed", "event", eventType, "error", err)
	}
}

// modelNameReplacer maps characters that are unsafe in file names.
var modelNameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// ModelName builds the display name of a generated model:
// BPMN_<title>_<yyyymmdd>. Whitespace and path characters in the title
// become underscores so the name doubles as a file name.
func ModelName(title string, at time.Time) string {
	t := strings.Join(strings.Fields(title), "_")
	t = modelNameReplacer.Replace(t)
	if t == "." || t == ".." {
		t = "_"
	}
	return fmt.Sprintf("BPMN_%s_%s", t, at.Format("20060102"))
}
