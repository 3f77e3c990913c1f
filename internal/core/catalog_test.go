package core

import (
	"context"
	"errors"
	"testing"

	"github.com/valter-silva-au/procmod/pkg/models"
)

func TestArchiveStore_ListReplacesCache(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`[{"id":"p1","title":"BAföG"},{"id":"p2","title":"Wohngeld"}]`)}
	s := NewArchiveStore(backend, nil, nil)

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || len(s.Cached()) != 2 {
		t.Fatalf("List = %+v", got)
	}

	backend.listBody = []byte(`{"packages":[{"id":"p3"}]}`)
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if c := s.Cached(); len(c) != 1 || c[0].ID != "p3" {
		t.Errorf("Cached = %+v", c)
	}
}

func TestArchiveStore_FailedListKeepsCache(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`[{"id":"p1"}]`)}
	s := NewArchiveStore(backend, nil, nil)
	_, _ = s.List(context.Background())

	backend.err = &statusErr{code: 503, msg: "unavailable"}
	if _, err := s.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Cached()) != 1 {
		t.Error("cache changed after failed list")
	}
}

func TestArchiveStore_CreateValidates(t *testing.T) {
	s := NewArchiveStore(&stubCatalog{}, nil, nil)

	_, err := s.Create(context.Background(), models.ArchiveCreate{Title: "x", ModelXML: "<d/>"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "source_files" {
		t.Fatalf("error = %v, want source_files ValidationError", err)
	}
}

func TestArchiveStore_CreateAppendsAfterSuccess(t *testing.T) {
	backend := &stubCatalog{createBody: []byte(`{"id":"new","title":"BAföG"}`)}
	events := &recordingEvents{}
	s := NewArchiveStore(backend, events, nil)

	pkg, err := s.Create(context.Background(), models.ArchiveCreate{
		Title:       "BAföG",
		SourceFiles: []models.SourceFile{textFile("law.txt", "x")},
		ModelXML:    "<d/>",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pkg.ID != "new" || len(s.Cached()) != 1 {
		t.Errorf("pkg = %+v cached = %+v", pkg, s.Cached())
	}
	if got := events.types(); len(got) != 1 || got[0] != "catalog.changed" {
		t.Errorf("events = %v", got)
	}
}

func TestArchiveStore_DeleteRequiresConfirmation(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`[{"id":"p1"},{"id":"p2"}]`)}
	s := NewArchiveStore(backend, nil, nil)
	_, _ = s.List(context.Background())

	if err := s.Delete(context.Background(), "p1", no); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("error = %v, want ErrConfirmationRequired", err)
	}
	if len(backend.deleted) != 0 {
		t.Fatal("backend contacted without confirmation")
	}

	if err := s.Delete(context.Background(), "p1", yes); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c := s.Cached(); len(c) != 1 || c[0].ID != "p2" {
		t.Errorf("Cached = %+v", c)
	}
}

func TestArchiveStore_FailedDeleteKeepsCache(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`[{"id":"p1"}]`)}
	s := NewArchiveStore(backend, nil, nil)
	_, _ = s.List(context.Background())
	backend.err = &statusErr{code: 404, msg: "not found"}

	err := s.Delete(context.Background(), "p1", yes)
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Status != 404 {
		t.Fatalf("error = %v, want TransportError 404", err)
	}
	if len(s.Cached()) != 1 {
		t.Error("cache changed after failed delete")
	}
}

func TestPatternStore_RenameAndDelete(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`{"patterns":[{"id":"a","title":"Old"},{"id":"b","title":"Other"}]}`)}
	s := NewPatternStore(backend, nil, nil)
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}

	if err := s.Rename(context.Background(), "a", "New"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if s.Cached()[0].Title != "New" || backend.renamed["a"] != "New" {
		t.Errorf("rename not applied: %+v", s.Cached())
	}

	if err := s.Rename(context.Background(), "a", " "); err == nil {
		t.Error("expected validation error for empty title")
	}

	if err := s.Delete(context.Background(), "b", nil); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("error = %v, want ErrConfirmationRequired", err)
	}
	if err := s.Delete(context.Background(), "b", yes); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.Cached()) != 1 {
		t.Errorf("Cached = %+v", s.Cached())
	}
}

func TestPatternStore_FailedRenameKeepsCache(t *testing.T) {
	backend := &stubCatalog{listBody: []byte(`[{"id":"a","title":"Old"}]`)}
	s := NewPatternStore(backend, nil, nil)
	_, _ = s.List(context.Background())
	backend.err = errors.New("connection reset")

	if err := s.Rename(context.Background(), "a", "New"); err == nil {
		t.Fatal("expected error")
	}
	if s.Cached()[0].Title != "Old" {
		t.Error("cache changed after failed rename")
	}
}

func TestPatternStore_CreateEmptyBodyUsesTitle(t *testing.T) {
	s := NewPatternStore(&stubCatalog{}, nil, nil)

	rec, err := s.Create(context.Background(), models.PatternCreate{Title: "Antrag", ModelXML: "<d/>"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Title != "Antrag" {
		t.Errorf("Title = %q", rec.Title)
	}
}
