package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// modelDocumentKeys are the field names the generation endpoint has used for
// the model document, in order of preference.
var modelDocumentKeys = []string{"bpmn_xml", "text", "output"}

type rawActivity struct {
	Typ                string `json:"typ"`
	Bezeichnung        string `json:"bezeichnung"`
	Handlungsgrundlage string `json:"handlungsgrundlage"`
}

// NormalizeExtraction maps an extraction response to an activity list.
// Only {"activities": [...]} is accepted. Incoming nr values are dropped.
func NormalizeExtraction(body []byte) (models.ActivityList, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed(models.StageExtraction, "body is not a JSON object")
	}
	raw, ok := envelope["activities"]
	if !ok || isNull(raw) {
		return nil, malformed(models.StageExtraction, "missing activities")
	}

	var items []rawActivity
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(models.StageExtraction, "activities is not an array of records")
	}

	out := make(models.ActivityList, 0, len(items))
	for i, it := range items {
		typ, err := models.ParseActivityType(it.Typ)
		if err != nil {
			return nil, malformed(models.StageExtraction, fmt.Sprintf("activity %d: %v", i+1, err))
		}
		out = append(out, models.ActivityRecord{
			Nr:                 i + 1,
			Typ:                typ,
			Bezeichnung:        it.Bezeichnung,
			Handlungsgrundlage: it.Handlungsgrundlage,
		})
	}
	return out, nil
}

// NormalizeClassification accepts {"results": [...]} or a bare array and
// preserves backend order.
func NormalizeClassification(body []byte) ([]models.ClassificationEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, malformed(models.StageClassification, "empty body")
	}

	raw := json.RawMessage(trimmed)
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, malformed(models.StageClassification, "body is not valid JSON")
		}
		r, ok := envelope["results"]
		if !ok || isNull(r) {
			return nil, malformed(models.StageClassification, "missing results")
		}
		raw = r
	}
	if isNull(raw) {
		return nil, malformed(models.StageClassification, "missing results")
	}

	var entries []models.ClassificationEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, malformed(models.StageClassification, "results is not an array of entries")
	}
	return entries, nil
}

// NormalizeGeneration extracts the model document from a generation
// response. The document may sit under bpmn_xml, text or output, and may be
// wrapped in a markdown code fence. A fenced XML body without a JSON
// envelope is accepted as well.
func NormalizeGeneration(body []byte) (models.ModelDocument, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "```") {
		doc := StripCodeFence(trimmed)
		if !strings.HasPrefix(doc, "<") {
			return models.ModelDocument{}, malformed(models.StageGeneration, "fenced body is not XML")
		}
		return models.ModelDocument{XML: doc}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return models.ModelDocument{}, malformed(models.StageGeneration, "body is not a JSON object")
	}

	for _, key := range modelDocumentKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.ModelDocument{}, malformed(models.StageGeneration, key+" is not a string")
		}
		doc := StripCodeFence(s)
		if doc == "" {
			return models.ModelDocument{}, malformed(models.StageGeneration, key+" is empty")
		}
		return models.ModelDocument{XML: doc}, nil
	}
	return models.ModelDocument{}, malformed(models.StageGeneration, "missing bpmn_xml, text or output")
}

// StripCodeFence removes a surrounding markdown code fence (```xml ... ```)
// and returns the trimmed content. Unfenced input is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NormalizeArchiveList accepts a bare array or {"packages": [...]}.
func NormalizeArchiveList(body []byte) ([]models.ArchivePackage, error) {
	var out []models.ArchivePackage
	if err := decodeList(body, "packages", &out); err != nil {
		return nil, &MalformedResponseError{Stage: "archive", Reason: err.Error()}
	}
	return out, nil
}

// NormalizePatternList accepts a bare array or {"patterns": [...]}.
func NormalizePatternList(body []byte) ([]models.PatternRecord, error) {
	var out []models.PatternRecord
	if err := decodeList(body, "patterns", &out); err != nil {
		return nil, &MalformedResponseError{Stage: "patterns", Reason: err.Error()}
	}
	return out, nil
}

func decodeList(body []byte, key string, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty body")
	}
	raw := json.RawMessage(trimmed)
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("body is not valid JSON")
		}
		r, ok := envelope[key]
		if !ok {
			return fmt.Errorf("missing %s", key)
		}
		raw = r
	}
	if isNull(raw) {
		return fmt.Errorf("missing %s", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s is not an array of records", key)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func malformed(stage models.Stage, reason string) error {
	return &MalformedResponseError{Stage: stage, Reason: reason}
}
