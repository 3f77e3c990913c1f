package models

import "time"

// GeneratedModel is a model document produced by the generation stage,
// kept in the session for export, rating and archiving.
type GeneratedModel struct {
	ID        string        `yaml:"id" json:"id"`
	Name      string        `yaml:"name" json:"name"`
	Sources   []SourceFile  `yaml:"sources" json:"sources"`
	CreatedAt time.Time     `yaml:"created_at" json:"created_at"`
	Document  ModelDocument `yaml:"document" json:"document"`
	Rating    int           `yaml:"rating,omitempty" json:"rating,omitempty"`
	Feedback  string        `yaml:"feedback,omitempty" json:"feedback,omitempty"`
}

// Rated reports whether the model has received a quality rating.
func (m GeneratedModel) Rated() bool {
	return m.Rating > 0
}

// SessionDraft is the persisted working state of an operator session.
type SessionDraft struct {
	Editor          string                `yaml:"editor,omitempty"`
	StartedAt       time.Time             `yaml:"started_at"`
	Activities      ActivityList          `yaml:"activities,omitempty"`
	Classifications []ClassificationEntry `yaml:"classifications,omitempty"`
	Models          []GeneratedModel      `yaml:"models,omitempty"`
}
