package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// ErrUnsupportedFormat is returned for files the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// PageBreak separates the text of consecutive PDF pages.
const PageBreak = "\f"

// SupportedExtensions lists the accepted input file extensions.
var SupportedExtensions = []string{".pdf", ".txt", ".md", ".json"}

// ContentExtractor turns input documents into plain text: PDFs via their
// text layer, text-like formats verbatim.
type ContentExtractor struct{}

// NewContentExtractor creates a ContentExtractor.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Extract reads path and returns its text together with the file name.
func (e *ContentExtractor) Extract(ctx context.Context, path string) (models.SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return models.SourceFile{}, err
	}

	name := filepath.Base(path)
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(path)
	case ".txt", ".md", ".json":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return models.SourceFile{}, fmt.Errorf("%s: %w (accepted: %s)", name, ErrUnsupportedFormat, strings.Join(SupportedExtensions, ", "))
	}
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("extracting %s: %w", name, err)
	}

	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}
	return models.SourceFile{Name: name, Text: text, Path: abs}, nil
}

// ExtractAll extracts every path in order and stops at the first failure.
func (e *ContentExtractor) ExtractAll(ctx context.Context, paths []string) ([]models.SourceFile, error) {
	out := make([]models.SourceFile, 0, len(paths))
	for _, p := range paths {
		f, err := e.Extract(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// pdfText concatenates the text layer of all pages in order.
func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text of page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, PageBreak), nil
}
