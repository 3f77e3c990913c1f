// Package core contains the business logic for procmod: the activity-list
// editor, the stage pipeline, the history log, the archive and pattern
// catalogs, the operator session and configuration.
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// ConfigFileName is the per-workspace configuration file.
const ConfigFileName = ".procmodrc"

// EnvPrefix is the prefix for environment overrides, e.g.
// PROCMOD_BACKEND_BASE_URL.
const EnvPrefix = "PROCMOD"

// dotenvFiles are loaded from the base path before the environment is
// consulted. Earlier files win.
var dotenvFiles = []string{".env.local", ".env"}

// ConfigurationManager loads and validates procmod configuration from
// .procmodrc, .env files and PROCMOD_* environment variables.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

type viperConfigManager struct {
	// basePath is the directory holding .procmodrc.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads files
// relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with defaults for basePath.
func DefaultConfig(basePath string) *models.Config {
	return &models.Config{
		Backend: models.BackendConfig{
			BaseURL: "http://localhost:8000",
		},
		History: models.HistoryConfig{
			Backend: models.HistoryBackendFile,
			Path:    filepath.Join(basePath, ".procmod"),
		},
		Events: true,
		Alerts: models.AlertConfig{
			FailureThreshold: 3,
			DraftDays:        7,
		},
	}
}

// LoadConfig reads .procmodrc from the base path. Missing files fall back
// to defaults; environment variables override both.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	if err := loadDotenv(cm.basePath); err != nil {
		return nil, err
	}

	def := DefaultConfig(cm.basePath)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv applies during Unmarshal.
	v.SetDefault("backend.base_url", def.Backend.BaseURL)
	v.SetDefault("backend.timeout", def.Backend.Timeout)
	v.SetDefault("backend.token", "")
	v.SetDefault("history.backend", string(def.History.Backend))
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("editor_name", "")
	v.SetDefault("events", def.Events)
	v.SetDefault("alerts.failure_threshold", def.Alerts.FailureThreshold)
	v.SetDefault("alerts.draft_days", def.Alerts.DraftDays)
	v.SetDefault("notifications.slack.webhook_url", "")

	path := filepath.Join(cm.basePath, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", ConfigFileName, err)
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}

	// A relative history path is taken relative to the base path.
	if cfg.History.Path != "" && !filepath.IsAbs(cfg.History.Path) {
		cfg.History.Path = filepath.Join(cm.basePath, cfg.History.Path)
	}
	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and reports
// all problems at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	u, err := url.Parse(cfg.Backend.BaseURL)
	if cfg.Backend.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.base_url %q is not an absolute URL", cfg.Backend.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("backend.base_url scheme %q is invalid, must be http or https", u.Scheme))
	}

	if cfg.Backend.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("backend.timeout must be non-negative, got %s", cfg.Backend.Timeout))
	}

	switch cfg.History.Backend {
	case models.HistoryBackendFile, models.HistoryBackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("history.backend %q is invalid, must be one of: file, sqlite", cfg.History.Backend))
	}

	if cfg.History.Path == "" {
		errs = append(errs, "history.path must not be empty")
	}

	if cfg.Alerts.FailureThreshold < 1 {
		errs = append(errs, fmt.Sprintf("alerts.failure_threshold must be at least 1, got %d", cfg.Alerts.FailureThreshold))
	}
	if cfg.Alerts.DraftDays < 1 {
		errs = append(errs, fmt.Sprintf("alerts.draft_days must be at least 1, got %d", cfg.Alerts.DraftDays))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func loadDotenv(basePath string) error {
	for _, name := range dotenvFiles {
		path := filepath.Join(basePath, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}
