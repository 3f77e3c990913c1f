package models

import "time"

// ExtractionRequest is the payload sent to the extraction endpoint.
type ExtractionRequest struct {
	SourceText         string `json:"source_text"`
	ServiceLabel       string `json:"service_label"`
	Notes              string `json:"notes"`
	ReferencePatternID string `json:"reference_pattern_id,omitempty"`
}

// ClassificationRequest is the payload sent to the classification endpoint.
type ClassificationRequest struct {
	SourceText string `json:"source_text"`
}

// GenerationRequest carries everything the generation stage may send. When
// Activities is non-empty the backend client uses the multipart upload
// endpoint with the original files, otherwise the plain text endpoint.
type GenerationRequest struct {
	Title      string       `json:"title"`
	SourceText string       `json:"source_text"`
	Sources    []SourceFile `json:"-"`
	Activities ActivityList `json:"-"`
	Notes      string       `json:"-"`
}

// FinalizationRequest is the payload sent to the finalization endpoint.
type FinalizationRequest struct {
	ServiceLabel    string       `json:"service_label"`
	Notes           string       `json:"notes"`
	FinalActivities ActivityList `json:"final_activities"`
	FinalizedAt     time.Time    `json:"finalized_at"`
	Editor          string       `json:"editor"`
}
