package models

import "time"

// Stage identifies one backend-assisted transformation.
type Stage string

const (
	StageExtraction     Stage = "extraction"
	StageClassification Stage = "classification"
	StageGeneration     Stage = "generation"
	StageFinalization   Stage = "finalization"
)

// AllStages lists the stages in pipeline order.
var AllStages = []Stage{StageExtraction, StageClassification, StageGeneration, StageFinalization}

// StageState is the lifecycle state of a single stage invocation.
type StageState string

const (
	StateIdle       StageState = "idle"
	StateSubmitting StageState = "submitting"
	StateSucceeded  StageState = "succeeded"
	StateFailed     StageState = "failed"
)

// ResultKind tags which payload a StageResult carries.
type ResultKind string

const (
	ResultExtraction     ResultKind = "extraction"
	ResultClassification ResultKind = "classification"
	ResultGeneration     ResultKind = "generation"
)

// ClassificationEntry is one classification result per input text unit.
type ClassificationEntry struct {
	SourceText     string `json:"source_text" yaml:"source_text"`
	ReferenceID    string `json:"reference_id" yaml:"reference_id"`
	ReferenceLabel string `json:"reference_label" yaml:"reference_label"`
	Rationale      string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// ModelDocument is an unwrapped XML process-model document.
type ModelDocument struct {
	XML string `json:"xml" yaml:"xml"`
}

// Provenance records where a stage result came from.
type Provenance struct {
	SourceFiles []string  `json:"source_files" yaml:"source_files"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// StageResult is the canonical, normalized output of a stage. Exactly one of
// Activities, Classifications or Model is populated, according to Kind.
type StageResult struct {
	Kind            ResultKind            `json:"kind" yaml:"kind"`
	Activities      ActivityList          `json:"activities,omitempty" yaml:"activities,omitempty"`
	Classifications []ClassificationEntry `json:"classifications,omitempty" yaml:"classifications,omitempty"`
	Model           *ModelDocument        `json:"model,omitempty" yaml:"model,omitempty"`
	Provenance      Provenance            `json:"provenance" yaml:"provenance"`
}

// Clone returns a deep copy of the result.
func (r StageResult) Clone() StageResult {
	out := r
	out.Activities = r.Activities.Clone()
	if r.Classifications != nil {
		out.Classifications = make([]ClassificationEntry, len(r.Classifications))
		copy(out.Classifications, r.Classifications)
	}
	if r.Model != nil {
		m := *r.Model
		out.Model = &m
	}
	if r.Provenance.SourceFiles != nil {
		out.Provenance.SourceFiles = append([]string(nil), r.Provenance.SourceFiles...)
	}
	return out
}

// SourceFile is an input document after content extraction.
type SourceFile struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
	// Path is kept so multipart uploads can stream the original bytes.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}
