package core

import (
	"fmt"
	"sync"

	"github.com/valter-silva-au/procmod/pkg/models"
)

// End is the insert position that appends to the list.
const End = -1

// ActivityListEditor owns one ordered activity list and keeps Nr equal to
// position+1 after every structural change. It performs no I/O.
type ActivityListEditor interface {
	Insert(after int, template models.ActivityRecord) models.ActivityList
	Remove(index int) (models.ActivityList, error)
	Move(from, to int) models.ActivityList
	EditField(index int, field, value string) (models.ActivityList, error)
	ReplaceAll(records models.ActivityList) models.ActivityList
	List() models.ActivityList
	Len() int
}

type activityListEditor struct {
	mu    sync.Mutex
	items models.ActivityList
}

// NewActivityListEditor creates an editor holding the given records,
// renumbered.
func NewActivityListEditor(initial models.ActivityList) ActivityListEditor {
	e := &activityListEditor{}
	e.ReplaceAll(initial)
	return e
}

// Insert adds a record after the given index, or at the end for End or any
// index outside the list. Empty Typ defaults to ActivityGroup.
func (e *activityListEditor) Insert(after int, template models.ActivityRecord) models.ActivityList {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := template
	if rec.Typ == "" {
		rec.Typ = models.ActivityActivityGroup
	}

	pos := len(e.items)
	if after >= 0 && after < len(e.items) {
		pos = after + 1
	}

	e.items = append(e.items, models.ActivityRecord{})
	copy(e.items[pos+1:], e.items[pos:])
	e.items[pos] = rec
	e.renumber()
	return e.items.Clone()
}

// Remove deletes the record at index. An invalid index leaves the list
// untouched and returns ErrIndexOutOfRange.
func (e *activityListEditor) Remove(index int) (models.ActivityList, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.items) {
		return e.items.Clone(), fmt.Errorf("remove %d: %w", index, ErrIndexOutOfRange)
	}
	e.items = append(e.items[:index], e.items[index+1:]...)
	e.renumber()
	return e.items.Clone(), nil
}

// Move relocates one record, keeping the relative order of all others.
// Out-of-range indices are ignored.
func (e *activityListEditor) Move(from, to int) models.ActivityList {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return e.items.Clone()
	}

	rec := e.items[from]
	if from < to {
		copy(e.items[from:to], e.items[from+1:to+1])
	} else {
		copy(e.items[to+1:from+1], e.items[to:from])
	}
	e.items[to] = rec
	e.renumber()
	return e.items.Clone()
}

// EditField updates one text or type field in place. Numbering is not
// affected and Nr cannot be edited.
func (e *activityListEditor) EditField(index int, field, value string) (models.ActivityList, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.items) {
		return e.items.Clone(), fmt.Errorf("edit %d: %w", index, ErrIndexOutOfRange)
	}

	rec := &e.items[index]
	switch field {
	case models.FieldTyp:
		typ, err := models.ParseActivityType(value)
		if err != nil {
			return e.items.Clone(), &ValidationError{Field: field, Reason: err.Error()}
		}
		rec.Typ = typ
	case models.FieldBezeichnung:
		rec.Bezeichnung = value
	case models.FieldHandlungsgrundlage:
		rec.Handlungsgrundlage = value
	default:
		return e.items.Clone(), fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return e.items.Clone(), nil
}

// ReplaceAll loads records in bulk, discarding any incoming numbering.
func (e *activityListEditor) ReplaceAll(records models.ActivityList) models.ActivityList {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = make(models.ActivityList, 0, len(records))
	for _, r := range records {
		if r.Typ == "" {
			r.Typ = models.ActivityActivityGroup
		}
		e.items = append(e.items, models.ActivityRecord{
			Typ:                r.Typ,
			Bezeichnung:        r.Bezeichnung,
			Handlungsgrundlage: r.Handlungsgrundlage,
		})
	}
	e.renumber()
	return e.items.Clone()
}

func (e *activityListEditor) List() models.ActivityList {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.Clone()
}

func (e *activityListEditor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// renumber is the single source of truth for Nr.
func (e *activityListEditor) renumber() {
	for i := range e.items {
		e.items[i].Nr = i + 1
	}
}
