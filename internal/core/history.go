package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// HistoryKey is the namespace key the history log is stored under.
const HistoryKey = "procmod.history.v1"

// HistoryStore is an ordered, most-recent-first log of stage snapshots.
type HistoryStore interface {
	Load() error
	Append(entry models.HistoryEntry) (models.HistoryEntry, error)
	Remove(id string, confirm Confirm) error
	Recall(id string) (models.HistoryEntry, error)
	List() []models.HistoryEntry
}

type historyStore struct {
	mu      sync.Mutex
	kv      KeyValueStore
	entries []models.HistoryEntry
	logger  *slog.Logger
	events  EventLogger
	now     func() time.Time
}

// NewHistoryStore creates a HistoryStore persisted in kv. Call Load before
// use to read any existing log.
func NewHistoryStore(kv KeyValueStore, logger *slog.Logger, events EventLogger) HistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &historyStore{
		kv:     kv,
		logger: logger.With("component", "history"),
		events: events,
		now:    time.Now,
	}
}

// Load reads the whole log. A missing log is empty. A log that cannot be
// decoded is discarded with a warning so the session can still start.
func (h *historyStore) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.kv.Get(HistoryKey)
	if err != nil {
		return &PersistenceError{Op: "load history", Err: err}
	}
	h.entries = nil
	if len(data) == 0 {
		return nil
	}

	var log models.HistoryLog
	if err := yaml.Unmarshal(data, &log); err != nil {
		perr := &PersistenceError{Op: "decode history", Err: err}
		h.logger.Warn("discarding unreadable history log", "error", perr)
		return nil
	}
	for i := range log.Entries {
		log.Entries[i] = canonicalEntry(log.Entries[i])
	}
	h.entries = log.Entries
	return nil
}

// Append assigns an ID and date when missing, prepends the entry and
// rewrites the log.
func (h *historyStore) Append(entry models.HistoryEntry) (models.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := canonicalEntry(entry.Clone())
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return models.HistoryEntry{}, fmt.Errorf("generating history id: %w", err)
		}
		e.ID = id.String()
	}
	if e.Date.IsZero() {
		e.Date = h.now().UTC()
	}

	next := make([]models.HistoryEntry, 0, len(h.entries)+1)
	next = append(next, e)
	next = append(next, h.entries...)
	if err := h.persist(next); err != nil {
		return models.HistoryEntry{}, err
	}
	h.entries = next

	h.logEvent("history.appended", map[string]any{
		"id":    e.ID,
		"kind":  string(e.Kind),
		"title": e.Title,
		"final": e.Final,
	})
	return e.Clone(), nil
}

// Remove deletes an entry once confirm returns true.
func (h *historyStore) Remove(id string, confirm Confirm) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("history entry %q: %w", id, ErrEntryNotFound)
	}
	if confirm == nil || !confirm() {
		return ErrConfirmationRequired
	}

	next := make([]models.HistoryEntry, 0, len(h.entries)-1)
	next = append(next, h.entries[:idx]...)
	next = append(next, h.entries[idx+1:]...)
	if err := h.persist(next); err != nil {
		return err
	}
	h.entries = next

	h.logEvent("history.removed", map[string]any{"id": id})
	return nil
}

// Recall returns a deep copy of the entry so callers cannot alter the log.
func (h *historyStore) Recall(id string) (models.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.indexOf(id)
	if idx < 0 {
		return models.HistoryEntry{}, fmt.Errorf("history entry %q: %w", id, ErrEntryNotFound)
	}
	return h.entries[idx].Clone(), nil
}

func (h *historyStore) List() []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Clone()
	}
	return out
}

func (h *historyStore) indexOf(id string) int {
	for i, e := range h.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// canonicalEntry maps empty lists and maps to nil, the form they take after
// a reload, so a recalled entry is identical before and after persistence.
func canonicalEntry(e models.HistoryEntry) models.HistoryEntry {
	if len(e.Payload.Activities) == 0 {
		e.Payload.Activities = nil
	}
	if len(e.Payload.Classifications) == 0 {
		e.Payload.Classifications = nil
	}
	if len(e.Payload.Provenance.SourceFiles) == 0 {
		e.Payload.Provenance.SourceFiles = nil
	}
	if len(e.Metadata) == 0 {
		e.Metadata = nil
	}
	return e
}

func (h *historyStore) persist(entries []models.HistoryEntry) error {
	data, err := yaml.Marshal(models.HistoryLog{Entries: entries})
	if err != nil {
		return &PersistenceError{Op: "encode history", Err: err}
	}
	if err := h.kv.Put(HistoryKey, data); err != nil {
		return &PersistenceError{Op: "write history", Err: err}
	}
	return nil
}

func (h *historyStore) logEvent(eventType string, data map[string]any) {
	if h.events == nil {
		return
	}
	if err := h.events.LogEvent(eventType, data); err != nil {
		h.logger.Debug("event log write failed", "event", eventType, "error", err)
	}
}
