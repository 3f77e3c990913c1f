package core

import (
	"context"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// Backend issues the stage requests. Implementations return the raw 2xx
// response body; normalization happens in core. Non-2xx responses and
// network failures are returned as errors, optionally exposing
// StatusCode() int.
// This interface is defined locally in core to avoid importing integration.
type Backend interface {
	Extract(ctx context.Context, req models.ExtractionRequest) ([]byte, error)
	Classify(ctx context.Context, req models.ClassificationRequest) ([]byte, error)
	Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error)
	Finalize(ctx context.Context, req models.FinalizationRequest) ([]byte, error)
}

// ArchiveBackend is the archive catalog surface of the backend.
type ArchiveBackend interface {
	ListArchive(ctx context.Context) ([]byte, error)
	CreateArchive(ctx context.Context, req models.ArchiveCreate) ([]byte, error)
	DeleteArchive(ctx context.Context, id string) error
}

// PatternBackend is the pattern catalog surface of the backend.
type PatternBackend interface {
	ListPatterns(ctx context.Context) ([]byte, error)
	CreatePattern(ctx context.Context, req models.PatternCreate) ([]byte, error)
	DeletePattern(ctx context.Context, id string) error
	RenamePattern(ctx context.Context, id, title string) error
}

// KeyValueStore persists opaque blobs under string keys. Get returns
// (nil, nil) for a missing key.
// This interface is defined locally in core to avoid importing storage.
type KeyValueStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Confirm is asked before a destructive operation proceeds.
type Confirm func() bool
