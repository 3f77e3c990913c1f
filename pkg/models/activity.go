package models

import "fmt"

// ActivityType distinguishes process-class groupings from activity-group leaf steps.
type ActivityType string

const (
	ActivityProcessClass  ActivityType = "ProcessClass"
	ActivityActivityGroup ActivityType = "ActivityGroup"
)

// ParseActivityType accepts the canonical names plus the lowercase and
// German spellings the backend has been seen to emit.
func ParseActivityType(s string) (ActivityType, error) {
	switch s {
	case "ProcessClass", "processclass", "process_class", "Prozessklasse":
		return ActivityProcessClass, nil
	case "ActivityGroup", "activitygroup", "activity_group", "Aktivitätsgruppe", "":
		return ActivityActivityGroup, nil
	}
	return "", fmt.Errorf("unknown activity type %q", s)
}

// ActivityRecord is one row of the activity list. Nr is owned by the editor
// and always equals the record's position plus one.
type ActivityRecord struct {
	Nr                 int          `json:"nr" yaml:"nr"`
	Typ                ActivityType `json:"typ" yaml:"typ"`
	Bezeichnung        string       `json:"bezeichnung" yaml:"bezeichnung"`
	Handlungsgrundlage string       `json:"handlungsgrundlage" yaml:"handlungsgrundlage"`
}

// ActivityList is an ordered sequence of activity records.
type ActivityList []ActivityRecord

// Clone returns an independent copy of the list.
func (l ActivityList) Clone() ActivityList {
	if l == nil {
		return nil
	}
	out := make(ActivityList, len(l))
	copy(out, l)
	return out
}

// Editable activity fields. Nr is deliberately absent.
const (
	FieldTyp                = "typ"
	FieldBezeichnung        = "bezeichnung"
	FieldHandlungsgrundlage = "handlungsgrundlage"
)
