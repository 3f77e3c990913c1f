package core

import (
	"context"
	"sync"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// memKV is an in-memory KeyValueStore.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type recordedEvent struct {
	Type string
	Data map[string]any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// statusErr mimics the integration HTTP error.
type statusErr struct {
	code int
	msg  string
}

func (e *statusErr) Error() string   { return e.msg }
func (e *statusErr) StatusCode() int { return e.code }

// stubBackend returns canned bodies and counts calls. A non-nil block
// channel holds every call until it is closed.
type stubBackend struct {
	mu      sync.Mutex
	calls   map[models.Stage]int
	body    map[models.Stage][]byte
	err     map[models.Stage]error
	block   chan struct{}
	entered chan struct{}

	lastExtract  models.ExtractionRequest
	lastGenerate models.GenerationRequest
	lastFinalize models.FinalizationRequest
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		calls: make(map[models.Stage]int),
		body:  make(map[models.Stage][]byte),
		err:   make(map[models.Stage]error),
	}
}

func (b *stubBackend) respond(stage models.Stage) ([]byte, error) {
	b.mu.Lock()
	b.calls[stage]++
	block, entered := b.block, b.entered
	body, err := b.body[stage], b.err[stage]
	b.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return body, err
}

func (b *stubBackend) count(stage models.Stage) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[stage]
}

func (b *stubBackend) Extract(_ context.Context, req models.ExtractionRequest) ([]byte, error) {
	b.mu.Lock()
	b.lastExtract = req
	b.mu.Unlock()
	return b.respond(models.StageExtraction)
}

func (b *stubBackend) Classify(_ context.Context, _ models.ClassificationRequest) ([]byte, error) {
	return b.respond(models.StageClassification)
}

func (b *stubBackend) Generate(_ context.Context, req models.GenerationRequest) ([]byte, error) {
	b.mu.Lock()
	b.lastGenerate = req
	b.mu.Unlock()
	return b.respond(models.StageGeneration)
}

func (b *stubBackend) Finalize(_ context.Context, req models.FinalizationRequest) ([]byte, error) {
	b.mu.Lock()
	b.lastFinalize = req
	b.mu.Unlock()
	return b.respond(models.StageFinalization)
}

// stubCatalog implements ArchiveBackend and PatternBackend.
type stubCatalog struct {
	listBody   []byte
	createBody []byte
	err        error
	deleted    []string
	renamed    map[string]string
	archived   []models.ArchiveCreate
}

func (c *stubCatalog) ListArchive(context.Context) ([]byte, error) { return c.listBody, c.err }

func (c *stubCatalog) CreateArchive(_ context.Context, req models.ArchiveCreate) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.archived = append(c.archived, req)
	return c.createBody, nil
}

func (c *stubCatalog) DeleteArchive(_ context.Context, id string) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *stubCatalog) ListPatterns(context.Context) ([]byte, error) { return c.listBody, c.err }

func (c *stubCatalog) CreatePattern(context.Context, models.PatternCreate) ([]byte, error) {
	return c.createBody, c.err
}

func (c *stubCatalog) DeletePattern(_ context.Context, id string) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *stubCatalog) RenamePattern(_ context.Context, id, title string) error {
	if c.err != nil {
		return c.err
	}
	if c.renamed == nil {
		c.renamed = make(map[string]string)
	}
	c.renamed[id] = title
	return nil
}

func yes() bool { return true }
func no() bool  { return false }

func textFile(name, text string) models.SourceFile {
	return models.SourceFile{Name: name, Text: text}
}
