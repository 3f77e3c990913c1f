package core

import (
	"errors"
	"testing"

	"github.com/valter-silva-au/procmod/pkg/models"
)

func TestNormalizeExtraction(t *testing.T) {
	body := []byte(`{"activities":[
		{"nr": 7, "typ": "ProcessClass", "bezeichnung": "Antrag", "handlungsgrundlage": "§ 1"},
		{"typ": "activity_group", "bezeichnung": "Prüfung"}
	]}`)

	list, err := NormalizeExtraction(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Nr != 1 || list[1].Nr != 2 {
		t.Errorf("Nr = [%d %d], want [1 2]", list[0].Nr, list[1].Nr)
	}
	if list[0].Typ != models.ActivityProcessClass || list[1].Typ != models.ActivityActivityGroup {
		t.Errorf("types = [%s %s]", list[0].Typ, list[1].Typ)
	}
	if list[0].Handlungsgrundlage != "§ 1" {
		t.Errorf("Handlungsgrundlage = %q", list[0].Handlungsgrundlage)
	}
}

func TestNormalizeExtraction_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>`,
		"bare array":      `[{"typ":"ProcessClass"}]`,
		"missing key":     `{"items":[]}`,
		"null activities": `{"activities":null}`,
		"wrong shape":     `{"activities":"none"}`,
		"unknown typ":     `{"activities":[{"typ":"Gateway"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeExtraction([]byte(body))
			var merr *MalformedResponseError
			if !errors.As(err, &merr) {
				t.Fatalf("error = %v, want MalformedResponseError", err)
			}
			if merr.Stage != models.StageExtraction {
				t.Errorf("Stage = %q", merr.Stage)
			}
		})
	}
}

func TestNormalizeClassification_Shapes(t *testing.T) {
	envelope := `{"results":[{"source_text":"a","reference_id":"R2","reference_label":"Zwei"},{"source_text":"b","reference_id":"R1","reference_label":"Eins"}]}`
	bare := `[{"source_text":"a","reference_id":"R2","reference_label":"Zwei"},{"source_text":"b","reference_id":"R1","reference_label":"Eins"}]`

	for _, body := range []string{envelope, bare} {
		entries, err := NormalizeClassification([]byte(body))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", body, err)
		}
		if len(entries) != 2 || entries[0].ReferenceID != "R2" || entries[1].ReferenceID != "R1" {
			t.Errorf("order not preserved: %+v", entries)
		}
	}
}

func TestNormalizeClassification_EmptyIsNotNil(t *testing.T) {
	entries, err := NormalizeClassification([]byte(`{"results":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty slice", entries)
	}
}

func TestNormalizeClassification_Malformed(t *testing.T) {
	for _, body := range []string{``, `{"data":[]}`, `"text"`, `{"results":{}}`, `{"results":null}`, `null`} {
		_, err := NormalizeClassification([]byte(body))
		var merr *MalformedResponseError
		if !errors.As(err, &merr) {
			t.Errorf("body %q: error = %v, want MalformedResponseError", body, err)
		}
	}
}

func TestNormalizeGeneration_KeyPriority(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bpmn_xml", `{"bpmn_xml":"<definitions/>"}`, "<definitions/>"},
		{"text", `{"text":"<a/>"}`, "<a/>"},
		{"output", `{"output":"<b/>"}`, "<b/>"},
		{"bpmn_xml wins", `{"output":"<b/>","bpmn_xml":"<a/>"}`, "<a/>"},
		{"fenced value", "{\"text\":\"```xml\\n<definitions/>\\n```\"}", "<definitions/>"},
		{"fenced body", "```xml\n<definitions id=\"x\"/>\n```", `<definitions id="x"/>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := NormalizeGeneration([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.XML != tc.want {
				t.Errorf("XML = %q, want %q", doc.XML, tc.want)
			}
		})
	}
}

func TestNormalizeGeneration_Malformed(t *testing.T) {
	for _, body := range []string{`{}`, `{"text":""}`, `{"bpmn_xml":42}`, `not json`, "```\nplain words\n```"} {
		_, err := NormalizeGeneration([]byte(body))
		var merr *MalformedResponseError
		if !errors.As(err, &merr) {
			t.Errorf("body %q: error = %v, want MalformedResponseError", body, err)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"<x/>":                    "<x/>",
		"  <x/>  ":                "<x/>",
		"```xml\n<x/>\n```":       "<x/>",
		"```\n<x/>\n```\n":        "<x/>",
		"```<x/>```":              "<x/>",
		"```bpmn\n<a>\n</a>\n```": "<a>\n</a>",
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCatalogLists(t *testing.T) {
	pkgs, err := NormalizeArchiveList([]byte(`{"packages":[{"id":"p1","title":"BAföG"}]}`))
	if err != nil || len(pkgs) != 1 || pkgs[0].ID != "p1" {
		t.Fatalf("archive envelope: %v %+v", err, pkgs)
	}
	pkgs, err = NormalizeArchiveList([]byte(`[{"id":"p1"},{"id":"p2"}]`))
	if err != nil || len(pkgs) != 2 {
		t.Fatalf("archive bare: %v %+v", err, pkgs)
	}

	recs, err := NormalizePatternList([]byte(`{"patterns":[{"id":"x","title":"T","raw_model_document":"<d/>"}]}`))
	if err != nil || len(recs) != 1 || recs[0].RawModelDocument != "<d/>" {
		t.Fatalf("patterns: %v %+v", err, recs)
	}

	if _, err := NormalizePatternList([]byte(`{"items":[]}`)); err == nil {
		t.Error("expected error for missing patterns key")
	}
	if _, err := NormalizePatternList([]byte(`{"patterns":null}`)); err == nil {
		t.Error("expected error for null patterns")
	}
	if _, err := NormalizeArchiveList([]byte(`null`)); err == nil {
		t.Error("expected error for null archive body")
	}
}
