// Package internal provides the App struct that wires all components of
// procmod together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/procmod/internal/cli"
	"github.com/valter-silva-au/procmod/internal/core"
	"github.com/valter-silva-au/procmod/internal/integration"
	"github.com/valter-silva-au/procmod/internal/observability"
	"github.com/valter-silva-au/procmod/internal/storage"
	"github.com/valter-silva-au/procmod/pkg/models"
)

// EventLogFileName is the JSONL event log created in the base path.
const EventLogFileName = ".procmod_events.jsonl"

// App holds all service dependencies of procmod.
type App struct {
	BasePath string
	Config   *models.Config
	Logger   *slog.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store core.KeyValueStore

	// Backend and sources
	Backend   *integration.BackendClient
	Extractor *integration.ContentExtractor

	// Core services
	Session *core.Session

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the workspace
// directory holding .procmodrc, the event log and (by default) the history.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// .env files are loaded by LoadConfig, so the level may come from there.
	app.Logger = newLogger(os.Stderr, os.Getenv("PROCMOD_LOG_LEVEL"))
	slog.SetDefault(app.Logger)

	// --- Storage layer ---
	switch cfg.History.Backend {
	case models.HistoryBackendSQLite:
		db, err := storage.OpenSQLiteStore(filepath.Join(cfg.History.Path, storage.SQLiteFileName))
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		app.Store = db
	default:
		app.Store = storage.NewFileStore(cfg.History.Path)
	}

	// --- Observability ---
	var evtAdapter core.EventLogger
	if cfg.Events {
		app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
		if err != nil {
			// Non-fatal: run without metrics and alerts.
			app.Logger.Warn("event log disabled", "error", err)
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
		thresholds := observability.DefaultAlertThresholds()
		if cfg.Alerts.FailureThreshold > 0 {
			thresholds.FailureThreshold = cfg.Alerts.FailureThreshold
		}
		if cfg.Alerts.DraftDays > 0 {
			thresholds.DraftDays = cfg.Alerts.DraftDays
		}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, filepath.Base(basePath))
	}

	// --- Backend and sources ---
	app.Backend = integration.NewBackendClient(cfg.Backend)
	app.Extractor = integration.NewContentExtractor()

	// --- Session ---
	app.Session = core.NewSession(core.SessionDeps{
		Backend:  app.Backend,
		Archive:  app.Backend,
		Patterns: app.Backend,
		Store:    app.Store,
		Events:   evtAdapter,
		Logger:   app.Logger,
	})
	if err := app.Session.Open(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("opening session: %w", err)
	}
	if cfg.EditorName != "" && app.Session.EditorName() == "" {
		if err := app.Session.Login(cfg.EditorName); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("applying editor_name: %w", err)
		}
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Session = app.Session
	cli.Extractor = app.Extractor
	cli.Health = app.Backend

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App: the event log file handle and
// the history database. It is safe to call on a partially wired App.
func (a *App) Close() error {
	var errs []string
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c, ok := a.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolveBasePath determines the procmod workspace directory. It checks
// PROCMOD_HOME, then walks up from the current directory looking for
// .procmodrc, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("PROCMOD_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// newLogger builds the stderr text logger. Unknown or empty levels mean
// warn so normal command output stays clean.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelFor(eventType),
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
