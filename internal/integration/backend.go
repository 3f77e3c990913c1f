package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// HealthTimeout bounds the backend health probe.
const HealthTimeout = 2 * time.Second

// maxErrorBody caps how much of an error response is kept in messages.
const maxErrorBody = 512

// HTTPError is returned for any non-2xx backend response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
}

// StatusCode exposes the HTTP status to callers that only know the
// interface.
func (e *HTTPError) StatusCode() int { return e.Status }

// BackendClient talks to the processing backend over HTTP.
type BackendClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBackendClient creates a client for cfg. A zero timeout leaves the
// request unbounded except by the caller's context.
func NewBackendClient(cfg models.BackendConfig) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// BaseURL returns the configured backend root.
func (c *BackendClient) BaseURL() string { return c.baseURL }

func (c *BackendClient) Extract(ctx context.Context, req models.ExtractionRequest) ([]byte, error) {
	return c.postJSON(ctx, "/api/extract", req)
}

func (c *BackendClient) Classify(ctx context.Context, req models.ClassificationRequest) ([]byte, error) {
	return c.postJSON(ctx, "/api/classify", req)
}

// Generate uses the multipart upload endpoint when an activity list is
// available so the backend receives the original files alongside it, and
// the plain text endpoint otherwise.
func (c *BackendClient) Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
	if len(req.Activities) == 0 {
		return c.postJSON(ctx, "/api/generate", req)
	}

	activities, err := json.Marshal(req.Activities)
	if err != nil {
		return nil, fmt.Errorf("encoding activity list: %w", err)
	}
	metadata, err := json.Marshal(map[string]string{"title": req.Title, "notes": req.Notes})
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	form := newMultipartForm()
	for _, f := range req.Sources {
		if err := form.sourceFile("files", f); err != nil {
			return nil, err
		}
	}
	form.field("activity_list_json", string(activities))
	form.field("metadata_json", string(metadata))
	return c.postMultipart(ctx, "/api/generate/upload", form)
}

func (c *BackendClient) Finalize(ctx context.Context, req models.FinalizationRequest) ([]byte, error) {
	return c.postJSON(ctx, "/api/finalize", req)
}

func (c *BackendClient) ListArchive(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/archive", nil, "")
}

func (c *BackendClient) CreateArchive(ctx context.Context, req models.ArchiveCreate) ([]byte, error) {
	form := newMultipartForm()
	form.field("title", req.Title)
	for _, f := range req.SourceFiles {
		if err := form.sourceFile("source_files", f); err != nil {
			return nil, err
		}
	}
	form.file("model_file", modelFileName(req.ModelName, req.Title), []byte(req.ModelXML))
	return c.postMultipart(ctx, "/api/archive", form)
}

func (c *BackendClient) DeleteArchive(ctx context.Context, id string) error {
	_, err := c.postJSON(ctx, "/api/archive/delete", map[string]string{"id": id})
	return err
}

func (c *BackendClient) ListPatterns(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/patterns", nil, "")
}

func (c *BackendClient) CreatePattern(ctx context.Context, req models.PatternCreate) ([]byte, error) {
	form := newMultipartForm()
	form.field("title", req.Title)
	form.file("model_file", modelFileName(req.ModelName, req.Title), []byte(req.ModelXML))
	return c.postMultipart(ctx, "/api/patterns", form)
}

func (c *BackendClient) DeletePattern(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/patterns/"+url.PathEscape(id), nil, "")
	return err
}

func (c *BackendClient) RenamePattern(ctx context.Context, id, title string) error {
	_, err := c.postJSON(ctx, "/api/patterns/rename", map[string]string{"id": id, "new_title": title})
	return err
}

// Health probes GET /health and returns nil when the backend answers 2xx
// within HealthTimeout.
func (c *BackendClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	return err
}

func (c *BackendClient) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
}

func (c *BackendClient) postMultipart(ctx context.Context, path string, form *multipartForm) ([]byte, error) {
	contentType, err := form.close()
	if err != nil {
		return nil, fmt.Errorf("building multipart body for %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, &form.buf, contentType)
}

func (c *BackendClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response of %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(data)}
	}
	return data, nil
}

// errorDetail prefers a JSON "detail" or "error" field and falls back to
// the trimmed body.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if s, ok := parsed.Detail.(string); ok && s != "" {
			return s
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func modelFileName(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.Ext(name) == "" {
		name += ".bpmn"
	}
	return name
}

type multipartForm struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipartForm() *multipartForm {
	f := &multipartForm{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *multipartForm) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *multipartForm) file(field, filename string, content []byte) {
	if f.err != nil {
		return
	}
	part, err := f.w.CreateFormFile(field, filename)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(content)
}

// sourceFile attaches the original bytes when the file is still on disk
// and the extracted text otherwise.
func (f *multipartForm) sourceFile(field string, src models.SourceFile) error {
	content := []byte(src.Text)
	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return fmt.Errorf("reading %s for upload: %w", src.Name, err)
		}
		content = data
	}
	name := src.Name
	if name == "" {
		name = "source.txt"
	}
	f.file(field, name, content)
	return nil
}

func (f *multipartForm) close() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := f.w.Close(); err != nil {
		return "", err
	}
	return f.w.FormDataContentType(), nil
}
