package models

import "time"

// BackendConfig holds the connection settings for the processing backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Token   string        `yaml:"token,omitempty" mapstructure:"token"`
}

// HistoryBackend selects the key-value store behind the history log.
type HistoryBackend string

const (
	HistoryBackendFile   HistoryBackend = "file"
	HistoryBackendSQLite HistoryBackend = "sqlite"
)

// HistoryConfig controls where session and history state is persisted.
type HistoryConfig struct {
	Backend HistoryBackend `yaml:"backend" mapstructure:"backend"`
	Path    string         `yaml:"path" mapstructure:"path"`
}

// AlertConfig holds thresholds for the alert engine.
type AlertConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	DraftDays        int `yaml:"draft_days" mapstructure:"draft_days"`
}

// SlackConfig holds the incoming-webhook target for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig groups notification channels.
type NotificationConfig struct {
	Slack SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// Config holds all settings read from .procmodrc and PROCMOD_* variables.
type Config struct {
	Backend       BackendConfig      `yaml:"backend" mapstructure:"backend"`
	History       HistoryConfig      `yaml:"history" mapstructure:"history"`
	EditorName    string             `yaml:"editor_name,omitempty" mapstructure:"editor_name"`
	Events        bool               `yaml:"events" mapstructure:"events"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
