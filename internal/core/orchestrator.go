package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// DefaultClassificationTitle is used for classification history entries
// when no source file name is available.
const DefaultClassificationTitle = "Klassifikation"

// ExtractionInput holds the operator input for the extraction stage.
type ExtractionInput struct {
	Files              []models.SourceFile
	ServiceLabel       string
	Notes              string
	ReferencePatternID string
}

// ClassificationInput holds the operator input for the classification stage.
type ClassificationInput struct {
	Files []models.SourceFile
}

// GenerationInput holds the operator input for the generation stage.
type GenerationInput struct {
	Title string
	Files []models.SourceFile
	Notes string
}

// FinalizationInput holds the operator input for the finalization stage.
// The activity list is always taken from the editor.
type FinalizationInput struct {
	ServiceLabel string
	Notes        string
	Editor       string
}

// PipelineOrchestrator drives the four backend stages. Each stage has its
// own state machine Idle -> Submitting -> Succeeded|Failed -> Idle and at
// most one submission in flight.
type PipelineOrchestrator interface {
	SubmitExtraction(ctx context.Context, in ExtractionInput) (models.StageResult, error)
	SubmitClassification(ctx context.Context, in ClassificationInput) (models.StageResult, error)
	SubmitGeneration(ctx context.Context, in GenerationInput) (models.StageResult, error)
	SubmitFinalization(ctx context.Context, in FinalizationInput) (models.HistoryEntry, error)

	State(stage models.Stage) models.StageState
	LastError(stage models.Stage) error
	Acknowledge(stage models.Stage)

	Classifications() []models.ClassificationEntry
	SetClassifications(entries []models.ClassificationEntry)
	Model() *models.ModelDocument
}

type stageSlot struct {
	gate    *semaphore.Weighted
	state   models.StageState
	lastErr error
}

type orchestrator struct {
	backend Backend
	editor  ActivityListEditor
	history HistoryStore
	events  EventLogger
	logger  *slog.Logger
	now     func() time.Time

	mu              sync.Mutex
	slots           map[models.Stage]*stageSlot
	classifications []models.ClassificationEntry
	model           *models.ModelDocument
}

// NewPipelineOrchestrator wires the stages to their collaborators. events
// may be nil.
func NewPipelineOrchestrator(backend Backend, editor ActivityListEditor, history HistoryStore, events EventLogger, logger *slog.Logger) PipelineOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &orchestrator{
		backend: backend,
		editor:  editor,
		history: history,
		events:  events,
		logger:  logger.With("component", "orchestrator"),
		now:     time.Now,
		slots:   make(map[models.Stage]*stageSlot, len(models.AllStages)),
	}
	for _, s := range models.AllStages {
		o.slots[s] = &stageSlot{gate: semaphore.NewWeighted(1), state: models.StateIdle}
	}
	return o
}

func (o *orchestrator) SubmitExtraction(ctx context.Context, in ExtractionInput) (models.StageResult, error) {
	stage := models.StageExtraction
	if len(in.Files) == 0 {
		return models.StageResult{}, &ValidationError{Stage: stage, Field: "files", Reason: "at least one source file is required"}
	}
	if strings.TrimSpace(in.ServiceLabel) == "" {
		return models.StageResult{}, &ValidationError{Stage: stage, Field: "service_label", Reason: "must not be empty"}
	}

	var result models.StageResult
	err := o.run(stage, func() error {
		body, err := o.backend.Extract(ctx, models.ExtractionRequest{
			SourceText:         combinedText(in.Files),
			ServiceLabel:       in.ServiceLabel,
			Notes:              in.Notes,
			ReferencePatternID: in.ReferencePatternID,
		})
		if err != nil {
			return asTransportError(stage, err)
		}
		list, err := NormalizeExtraction(body)
		if err != nil {
			return err
		}

		result = models.StageResult{
			Kind:       models.ResultExtraction,
			Activities: NewActivityListEditor(list).List(),
			Provenance: o.provenance(in.Files, in.Notes),
		}
		meta := map[string]string{models.MetaServiceName: in.ServiceLabel}
		if in.Notes != "" {
			meta[models.MetaNotes] = in.Notes
		}
		if in.ReferencePatternID != "" {
			meta[models.MetaPatternID] = in.ReferencePatternID
		}
		if _, err := o.history.Append(models.HistoryEntry{
			Kind:     models.HistoryActivityList,
			Title:    in.ServiceLabel,
			Payload:  result,
			Metadata: meta,
		}); err != nil {
			return err
		}
		o.editor.ReplaceAll(result.Activities)
		return nil
	})
	return result, err
}

func (o *orchestrator) SubmitClassification(ctx context.Context, in ClassificationInput) (models.StageResult, error) {
	stage := models.StageClassification
	text := combinedText(in.Files)
	if len(in.Files) == 0 || strings.TrimSpace(text) == "" {
		return models.StageResult{}, &ValidationError{Stage: stage, Field: "files", Reason: "at least one source file with text is required"}
	}

	var result models.StageResult
	err := o.run(stage, func() error {
		body, err := o.backend.Classify(ctx, models.ClassificationRequest{SourceText: text})
		if err != nil {
			return asTransportError(stage, err)
		}
		entries, err := NormalizeClassification(body)
		if err != nil {
			return err
		}

		result = models.StageResult{
			Kind:            models.ResultClassification,
			Classifications: entries,
			Provenance:      o.provenance(in.Files, ""),
		}

		title := DefaultClassificationTitle
		if in.Files[0].Name != "" {
			title = in.Files[0].Name
		}
		if _, err := o.history.Append(models.HistoryEntry{
			Kind:    models.HistoryClassification,
			Title:   title,
			Payload: result,
		}); err != nil {
			return err
		}
		o.SetClassifications(entries)
		return nil
	})
	return result, err
}

func (o *orchestrator) SubmitGeneration(ctx context.Context, in GenerationInput) (models.StageResult, error) {
	stage := models.StageGeneration
	if strings.TrimSpace(in.Title) == "" {
		return models.StageResult{}, &ValidationError{Stage: stage, Field: "title", Reason: "must not be empty"}
	}
	if len(in.Files) == 0 {
		return models.StageResult{}, &ValidationError{Stage: stage, Field: "files", Reason: "at least one source file is required"}
	}

	var result models.StageResult
	err := o.run(stage, func() error {
		body, err := o.backend.Generate(ctx, models.GenerationRequest{
			Title:      in.Title,
			SourceText: combinedText(in.Files),
			Sources:    in.Files,
			Activities: o.editor.List(),
			Notes:      in.Notes,
		})
		if err != nil {
			return asTransportError(stage, err)
		}
		doc, err := NormalizeGeneration(body)
		if err != nil {
			return err
		}

		result = models.StageResult{
			Kind:       models.ResultGeneration,
			Model:      &doc,
			Provenance: o.provenance(in.Files, in.Notes),
		}
		o.mu.Lock()
		m := doc
		o.model = &m
		o.mu.Unlock()
		return nil
	})
	return result, err
}

func (o *orchestrator) SubmitFinalization(ctx context.Context, in FinalizationInput) (models.HistoryEntry, error) {
	stage := models.StageFinalization
	if strings.TrimSpace(in.ServiceLabel) == "" {
		return models.HistoryEntry{}, &ValidationError{Stage: stage, Field: "service_label", Reason: "must not be empty"}
	}
	list := o.editor.List()
	if len(list) == 0 {
		return models.HistoryEntry{}, &ValidationError{Stage: stage, Field: "activities", Reason: "activity list is empty"}
	}

	var entry models.HistoryEntry
	err := o.run(stage, func() error {
		finalizedAt := o.now().UTC()
		if _, err := o.backend.Finalize(ctx, models.FinalizationRequest{
			ServiceLabel:    in.ServiceLabel,
			Notes:           in.Notes,
			FinalActivities: list,
			FinalizedAt:     finalizedAt,
			Editor:          in.Editor,
		}); err != nil {
			return asTransportError(stage, err)
		}

		meta := map[string]string{
			models.MetaFinal:       "true",
			models.MetaEditor:      in.Editor,
			models.MetaFinalizedAt: finalizedAt.Format(time.RFC3339),
			models.MetaServiceName: in.ServiceLabel,
		}
		if in.Notes != "" {
			meta[models.MetaNotes] = in.Notes
		}
		var err error
		entry, err = o.history.Append(models.HistoryEntry{
			Date:  finalizedAt,
			Kind:  models.HistoryActivityList,
			Title: in.ServiceLabel,
			Final: true,
			Payload: models.StageResult{
				Kind:       models.ResultExtraction,
				Activities: list,
				Provenance: models.Provenance{Notes: in.Notes, Timestamp: finalizedAt},
			},
			Metadata: meta,
		})
		return err
	})
	return entry, err
}

// run enforces the single-flight rule and the state transitions around fn.
func (o *orchestrator) run(stage models.Stage, fn func() error) error {
	slot := o.slots[stage]
	if !slot.gate.TryAcquire(1) {
		o.logger.Debug("rejecting concurrent submission", "stage", stage)
		return fmt.Errorf("%s: %w", stage, ErrStageBusy)
	}
	defer slot.gate.Release(1)

	o.mu.Lock()
	slot.state = models.StateSubmitting
	slot.lastErr = nil
	o.mu.Unlock()
	o.logEvent("stage.submitted", map[string]any{"stage": string(stage)})

	start := o.now()
	err := fn()

	o.mu.Lock()
	if err != nil {
		slot.state = models.StateFailed
		slot.lastErr = err
	} else {
		slot.state = models.StateSucceeded
	}
	o.mu.Unlock()

	data := map[string]any{
		"stage":       string(stage),
		"duration_ms": o.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
		var te *TransportError
		if errors.As(err, &te) {
			data["status"] = te.Status
		}
		o.logger.Info("stage failed", "stage", stage, "error", err)
		o.logEvent("stage.failed", data)
		return err
	}
	o.logEvent("stage.succeeded", data)
	return nil
}

func (o *orchestrator) State(stage models.Stage) models.StageState {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[stage]
	if !ok {
		return models.StateIdle
	}
	return slot.state
}

func (o *orchestrator) LastError(stage models.Stage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[stage]
	if !ok {
		return nil
	}
	return slot.lastErr
}

// Acknowledge returns a finished stage to Idle. It has no effect while the
// stage is submitting.
func (o *orchestrator) Acknowledge(stage models.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[stage]
	if !ok {
		return
	}
	if slot.state == models.StateSucceeded || slot.state == models.StateFailed {
		slot.state = models.StateIdle
		slot.lastErr = nil
	}
}

func (o *orchestrator) Classifications() []models.ClassificationEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.classifications == nil {
		return nil
	}
	out := make([]models.ClassificationEntry, len(o.classifications))
	copy(out, o.classifications)
	return out
}

// SetClassifications restores a classification set, e.g. from a saved
// draft or a recalled history entry.
func (o *orchestrator) SetClassifications(entries []models.ClassificationEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entries == nil {
		o.classifications = nil
		return
	}
	o.classifications = make([]models.ClassificationEntry, len(entries))
	copy(o.classifications, entries)
}

func (o *orchestrator) Model() *models.ModelDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.model == nil {
		return nil
	}
	m := *o.model
	return &m
}

func (o *orchestrator) provenance(files []models.SourceFile, notes string) models.Provenance {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return models.Provenance{SourceFiles: names, Notes: notes, Timestamp: o.now().UTC()}
}

func (o *orchestrator) logEvent(eventType string, data map[string]any) {
	if o.events == nil {
		return
	}
	if err := o.events.LogEvent(eventType, data); err != nil {
		o.logger.Debug("event log write failed", "event", eventType, "error", err)
	}
}

// combinedText joins the extracted texts of all files in input order.
func combinedText(files []models.SourceFile) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, "\n\n")
}
