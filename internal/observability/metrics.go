package observability

import (
	"fmt"
	"time"
)

// StageMetrics counts the outcomes of one pipeline stage.
type StageMetrics struct {
	Submitted int   `json:"submitted"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	AvgMillis int64 `json:"avg_duration_ms"`
}

// SuccessRate returns succeeded / (succeeded + failed), or 0 when nothing
// has completed.
func (s StageMetrics) SuccessRate() float64 {
	done := s.Succeeded + s.Failed
	if done == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(done)
}

// Metrics holds values derived from the event log.
type Metrics struct {
	Stages          map[string]StageMetrics `json:"stages"`
	HistoryAppended int                     `json:"history_appended"`
	HistoryRemoved  int                     `json:"history_removed"`
	Finalizations   int                     `json:"finalizations"`
	CatalogChanges  int                     `json:"catalog_changes"`
	Sessions        int                     `json:"sessions"`
	EventCount      int                     `json:"event_count"`
	OldestEvent     *time.Time              `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time              `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all events since the given time.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{Stages: make(map[string]StageMetrics)}
	m.EventCount = len(events)

	durations := make(map[string]int64)
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		stage, _ := event.Data["stage"].(string)
		switch event.Type {
		case EventStageSubmitted:
			s := m.Stages[stage]
			s.Submitted++
			m.Stages[stage] = s
		case EventStageSucceeded:
			s := m.Stages[stage]
			s.Succeeded++
			m.Stages[stage] = s
			durations[stage] += durationMillis(event.Data)
		case EventStageFailed:
			s := m.Stages[stage]
			s.Failed++
			m.Stages[stage] = s
			durations[stage] += durationMillis(event.Data)
		case EventHistoryAdded:
			m.HistoryAppended++
			if final, _ := event.Data["final"].(bool); final {
				m.Finalizations++
			}
		case EventHistoryRemoved:
			m.HistoryRemoved++
		case EventCatalogChanged:
			m.CatalogChanges++
		case EventSessionStarted:
			m.Sessions++
		}
	}

	for stage, s := range m.Stages {
		if done := s.Succeeded + s.Failed; done > 0 {
			s.AvgMillis = durations[stage] / int64(done)
			m.Stages[stage] = s
		}
	}
	return m, nil
}

// durationMillis reads duration_ms, which decodes from JSON as float64.
func durationMillis(data map[string]any) int64 {
	switch v := data["duration_ms"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
