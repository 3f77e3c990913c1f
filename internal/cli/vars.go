package cli

import (
	"context"

	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/internal/observability"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// SourceExtractor turns input file paths into extracted source texts.
type SourceExtractor interface {
	ExtractAll(ctx context.Context, paths []string) ([]models.SourceFile, error)
}

// HealthChecker probes the backend.
type HealthChecker interface {
	Health(ctx context.Context) error
	BaseURL() string
}

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	Session   *core.Session
	Extractor SourceExtractor
	Health    HealthChecker
)

// Observability service instances, set during app initialization in app.go.
// All are nil when the event log is disabled.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
