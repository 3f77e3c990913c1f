package observability

import (
	"fmt"
	"sort"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionStageFailures = "stage_failures"
	ConditionStaleDraft    = "stale_draft"
)

// failureWindow is how far back stage failures are counted.
const failureWindow = 24 * time.Hour

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`
	DraftDays        int `yaml:"draft_days" json:"draft_days"`
}

// DefaultAlertThresholds returns the default thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailureThreshold: 3,
		DraftDays:        7,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Evaluate checks all conditions and returns the triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now().UTC()
	var alerts []Alert

	failureAlerts, err := ae.checkStageFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking stage failures: %w", err)
	}
	alerts = append(alerts, failureAlerts...)

	draftAlerts, err := ae.checkStaleDraft(now)
	if err != nil {
		return nil, fmt.Errorf("checking stale drafts: %w", err)
	}
	alerts = append(alerts, draftAlerts...)

	return alerts, nil
}

// checkStageFailures fires once per stage whose failures in the last 24
// hours reach the threshold.
func (ae *alertEngine) checkStageFailures(now time.Time) ([]Alert, error) {
	since := now.Add(-failureWindow)
	events, err := ae.eventLog.Read(EventFilter{Type: EventStageFailed, Since: &since})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, event := range events {
		stage, _ := event.Data["stage"].(string)
		if stage == "" {
			continue
		}
		counts[stage]++
	}

	stages := make([]string, 0, len(counts))
	for stage := range counts {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	var alerts []Alert
	for _, stage := range stages {
		n := counts[stage]
		if n < ae.thresholds.FailureThreshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("failures-%s", stage),
			Condition:   ConditionStageFailures,
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%s failed %d times in the last 24 hours", stage, n),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}

// checkStaleDraft fires when the newest non-final activity list is older
// than the threshold and no finalization has happened since.
func (ae *alertEngine) checkStaleDraft(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Type: EventHistoryAdded})
	if err != nil {
		return nil, err
	}

	var lastDraft, lastFinal *Event
	for i := range events {
		e := &events[i]
		if kind, _ := e.Data["kind"].(string); kind != "activity_list" {
			continue
		}
		if final, _ := e.Data["final"].(bool); final {
			lastFinal = e
		} else {
			lastDraft = e
		}
	}
	if lastDraft == nil {
		return nil, nil
	}
	if lastFinal != nil && !lastFinal.Time.Before(lastDraft.Time) {
		return nil, nil
	}

	threshold := time.Duration(ae.thresholds.DraftDays) * 24 * time.Hour
	if now.Sub(lastDraft.Time) <= threshold {
		return nil, nil
	}

	title, _ := lastDraft.Data["title"].(string)
	return []Alert{{
		ID:          "stale-draft",
		Condition:   ConditionStaleDraft,
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("activity list %q has not been finalized for more than %d days", title, ae.thresholds.DraftDays),
		TriggeredAt: now,
	}}, nil
}
