package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// ArchiveStore is a read-through cache over the backend archive catalog.
// The cache only changes after the backend confirms a change.
type ArchiveStore interface {
	List(ctx context.Context) ([]models.ArchivePackage, error)
	Create(ctx context.Context, req models.ArchiveCreate) (models.ArchivePackage, error)
	Delete(ctx context.Context, id string, confirm Confirm) error
	Cached() []models.ArchivePackage
}

// PatternStore is a read-through cache over the backend pattern catalog.
type PatternStore interface {
	List(ctx context.Context) ([]models.PatternRecord, error)
	Create(ctx context.Context, req models.PatternCreate) (models.PatternRecord, error)
	Delete(ctx context.Context, id string, confirm Confirm) error
	Rename(ctx context.Context, id, title string) error
	Cached() []models.PatternRecord
}

const (
	archiveStage models.Stage = "archive"
	patternStage models.Stage = "patterns"
)

type archiveStore struct {
	backend ArchiveBackend
	events  EventLogger
	logger  *slog.Logger

	mu    sync.Mutex
	cache []models.ArchivePackage
}

// NewArchiveStore creates an ArchiveStore over backend.
func NewArchiveStore(backend ArchiveBackend, events EventLogger, logger *slog.Logger) ArchiveStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &archiveStore{backend: backend, events: events, logger: logger.With("component", "archive")}
}

func (s *archiveStore) List(ctx context.Context) ([]models.ArchivePackage, error) {
	body, err := s.backend.ListArchive(ctx)
	if err != nil {
		return nil, asTransportError(archiveStage, err)
	}
	pkgs, err := NormalizeArchiveList(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = pkgs
	s.mu.Unlock()
	return s.Cached(), nil
}

func (s *archiveStore) Create(ctx context.Context, req models.ArchiveCreate) (models.ArchivePackage, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.ArchivePackage{}, &ValidationError{Stage: archiveStage, Field: "title", Reason: "must not be empty"}
	}
	if len(req.SourceFiles) == 0 {
		return models.ArchivePackage{}, &ValidationError{Stage: archiveStage, Field: "source_files", Reason: "at least one source file is required"}
	}
	if strings.TrimSpace(req.ModelXML) == "" {
		return models.ArchivePackage{}, &ValidationError{Stage: archiveStage, Field: "model_file", Reason: "model document is required"}
	}

	body, err := s.backend.CreateArchive(ctx, req)
	if err != nil {
		return models.ArchivePackage{}, asTransportError(archiveStage, err)
	}
	pkg, err := decodeCreated[models.ArchivePackage](archiveStage, body)
	if err != nil {
		return models.ArchivePackage{}, err
	}
	if pkg.Title == "" {
		pkg.Title = req.Title
	}

	s.mu.Lock()
	s.cache = append(s.cache, pkg)
	s.mu.Unlock()
	logCatalogEvent(s.events, s.logger, "archive", "create", pkg.ID)
	return pkg, nil
}

func (s *archiveStore) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm() {
		return ErrConfirmationRequired
	}
	if err := s.backend.DeleteArchive(ctx, id); err != nil {
		return asTransportError(archiveStage, err)
	}

	s.mu.Lock()
	out := s.cache[:0:0]
	for _, p := range s.cache {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.cache = out
	s.mu.Unlock()
	logCatalogEvent(s.events, s.logger, "archive", "delete", id)
	return nil
}

func (s *archiveStore) Cached() []models.ArchivePackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ArchivePackage, len(s.cache))
	copy(out, s.cache)
	return out
}

type patternStore struct {
	backend PatternBackend
	events  EventLogger
	logger  *slog.Logger

	mu    sync.Mutex
	cache []models.PatternRecord
}

// NewPatternStore creates a PatternStore over backend.
func NewPatternStore(backend PatternBackend, events EventLogger, logger *slog.Logger) PatternStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &patternStore{backend: backend, events: events, logger: logger.With("component", "patterns")}
}

func (s *patternStore) List(ctx context.Context) ([]models.PatternRecord, error) {
	body, err := s.backend.ListPatterns(ctx)
	if err != nil {
		return nil, asTransportError(patternStage, err)
	}
	recs, err := NormalizePatternList(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = recs
	s.mu.Unlock()
	return s.Cached(), nil
}

func (s *patternStore) Create(ctx context.Context, req models.PatternCreate) (models.PatternRecord, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.PatternRecord{}, &ValidationError{Stage: patternStage, Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.ModelXML) == "" {
		return models.PatternRecord{}, &ValidationError{Stage: patternStage, Field: "model_file", Reason: "model document is required"}
	}

	body, err := s.backend.CreatePattern(ctx, req)
	if err != nil {
		return models.PatternRecord{}, asTransportError(patternStage, err)
	}
	rec, err := decodeCreated[models.PatternRecord](patternStage, body)
	if err != nil {
		return models.PatternRecord{}, err
	}
	if rec.Title == "" {
		rec.Title = req.Title
	}

	s.mu.Lock()
	s.cache = append(s.cache, rec)
	s.mu.Unlock()
	logCatalogEvent(s.events, s.logger, "patterns", "create", rec.ID)
	return rec, nil
}

func (s *patternStore) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm() {
		return ErrConfirmationRequired
	}
	if err := s.backend.DeletePattern(ctx, id); err != nil {
		return asTransportError(patternStage, err)
	}

	s.mu.Lock()
	out := s.cache[:0:0]
	for _, r := range s.cache {
		if r.ID != id {
			out = append(out, r)
		}
	}
	s.cache = out
	s.mu.Unlock()
	logCatalogEvent(s.events, s.logger, "patterns", "delete", id)
	return nil
}

func (s *patternStore) Rename(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Stage: patternStage, Field: "new_title", Reason: "must not be empty"}
	}
	if err := s.backend.RenamePattern(ctx, id, title); err != nil {
		return asTransportError(patternStage, err)
	}

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i].Title = title
		}
	}
	s.mu.Unlock()
	logCatalogEvent(s.events, s.logger, "patterns", "rename", id)
	return nil
}

func (s *patternStore) Cached() []models.PatternRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PatternRecord, len(s.cache))
	copy(out, s.cache)
	return out
}

// decodeCreated reads the record echoed back by a create call. An empty
// body is accepted and yields a zero record.
func decodeCreated[T any](stage models.Stage, body []byte) (T, error) {
	var out T
	if len(strings.TrimSpace(string(body))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &MalformedResponseError{Stage: stage, Reason: fmt.Sprintf("create response: %v", err)}
	}
	return out, nil
}

func logCatalogEvent(events EventLogger, logger *slog.Logger, catalog, action, id string) {
	if events == nil {
		return
	}
	if err := events.LogEvent("catalog.changed", map[string]any{
		"catalog": catalog,
		"action":  action,
		"id":      id,
	}); err != nil {
		logger.Debug("event log write failed", "error", err)
	}
}
