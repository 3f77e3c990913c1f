package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/internal/integration"
	"github.com/valter-silva-au/procmod/internal/storage"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// fakeBackend is an httptest server answering the backend routes that a
// test registers. Unregistered routes return 404.
type fakeBackend struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	bodies map[string][]byte
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
		bodies: make(map[string][]byte),
	}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fb.hits[key]++
		fb.bodies[key] = body
		h := fb.routes[key]
		fb.mu.Unlock()

		if h == nil {
			http.NotFound(w, r)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		h(w, r)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

// json registers a route answering with a fixed JSON body.
func (fb *fakeBackend) json(route string, status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (fb *fakeBackend) count(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[route]
}

func (fb *fakeBackend) lastBody(t *testing.T, route string, v any) {
	t.Helper()
	fb.mu.Lock()
	data := fb.bodies[route]
	fb.mu.Unlock()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding %s request body: %v (%s)", route, err, data)
	}
}

// setupCLI wires the package globals to a fresh session over a file store
// and a fake backend. Globals are restored when the test ends.
func setupCLI(t *testing.T) *fakeBackend {
	t.Helper()

	origBase, origSession, origExtractor, origHealth := BasePath, Session, Extractor, Health
	origYes := assumeYes
	t.Cleanup(func() {
		BasePath, Session, Extractor, Health = origBase, origSession, origExtractor, origHealth
		assumeYes = origYes
	})

	fb := newFakeBackend(t)
	client := integration.NewBackendClient(models.BackendConfig{BaseURL: fb.srv.URL})

	dir := t.TempDir()
	sess := core.NewSession(core.SessionDeps{
		Backend:  client,
		Archive:  client,
		Patterns: client,
		Store:    storage.NewFileStore(filepath.Join(dir, ".procmod")),
	})
	if err := sess.Open(); err != nil {
		t.Fatalf("opening session: %v", err)
	}

	BasePath = dir
	Session = sess
	Extractor = integration.NewContentExtractor()
	Health = client
	assumeYes = false
	return fb
}

// run executes a command's RunE with captured output and the given stdin.
func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
	})
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func sampleList() models.ActivityList {
	return models.ActivityList{
		{Typ: models.ActivityProcessClass, Bezeichnung: "Antrag prüfen", Handlungsgrundlage: "§ 1"},
		{Typ: models.ActivityActivityGroup, Bezeichnung: "Bescheid erstellen", Handlungsgrundlage: "§ 2"},
		{Typ: models.ActivityActivityGroup, Bezeichnung: "Bescheid versenden", Handlungsgrundlage: "§ 3"},
	}
}

func bezeichnungen(list models.ActivityList) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Bezeichnung
	}
	return out
}

func assertOrder(t *testing.T, list models.ActivityList, want ...string) {
	t.Helper()
	got := bezeichnungen(list)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i, a := range list {
		if a.Nr != i+1 {
			t.Fatalf("record %d has nr %d", i, a.Nr)
		}
	}
}

// sessionStore opens a second handle on the store that setupCLI created.
func sessionStore(t *testing.T) core.KeyValueStore {
	t.Helper()
	return storage.NewFileStore(filepath.Join(BasePath, ".procmod"))
}
