package models

import "time"

// ArchivePackage is a backend-owned pair of source text and reference model.
type ArchivePackage struct {
	ID                 string    `json:"id" yaml:"id"`
	Title              string    `json:"title" yaml:"title"`
	CombinedSourceText string    `json:"combined_source_text" yaml:"combined_source_text"`
	ReferenceModelXML  string    `json:"reference_model_xml" yaml:"reference_model_xml"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
}

// ArchiveCreate holds the fields needed to create an archive package.
type ArchiveCreate struct {
	Title       string
	SourceFiles []SourceFile
	ModelName   string
	ModelXML    string
}

// PatternRecord is a backend-owned reference pattern model.
type PatternRecord struct {
	ID               string `json:"id" yaml:"id"`
	Title            string `json:"title" yaml:"title"`
	RawModelDocument string `json:"raw_model_document" yaml:"raw_model_document"`
}

// PatternCreate holds the fields needed to create a pattern record.
type PatternCreate struct {
	Title     string
	ModelName string
	ModelXML  string
}
