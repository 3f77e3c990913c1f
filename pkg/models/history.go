package models

import "time"

// HistoryKind classifies what a history entry holds.
type HistoryKind string

const (
	HistoryActivityList   HistoryKind = "activity_list"
	HistoryClassification HistoryKind = "classification"
)

// HistoryEntry is a persisted snapshot of a completed stage's output.
type HistoryEntry struct {
	ID       string            `json:"id" yaml:"id"`
	Date     time.Time         `json:"date" yaml:"date"`
	Kind     HistoryKind       `json:"kind" yaml:"kind"`
	Title    string            `json:"title" yaml:"title"`
	Final    bool              `json:"final,omitempty" yaml:"final,omitempty"`
	Payload  StageResult       `json:"payload" yaml:"payload"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	out.Payload = e.Payload.Clone()
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// HistoryLog is the serialized form of the whole history.
type HistoryLog struct {
	Entries []HistoryEntry `json:"entries" yaml:"entries"`
}

// Metadata keys written by the pipeline.
const (
	MetaFinal       = "final"
	MetaEditor      = "editor"
	MetaFinalizedAt = "finalized_at"
	MetaServiceName = "service_label"
	MetaNotes       = "notes"
	MetaPatternID   = "reference_pattern_id"
)
