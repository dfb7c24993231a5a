package reconcile

import (
	"maps"
	"slices"
)

// Change is one changed attribute of a contact.
type Change struct {
	Field  string
	Old    string
	OldSet bool // false when the attribute had no value at all
	New    string
}

// ChangeLog collects changes per contact in the order contacts were first
// changed. A later change of the same attribute replaces the earlier one.
type ChangeLog struct {
	order   []int64
	changes map[int64][]Change
}

// NewChangeLog returns an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{changes: make(map[int64][]Change)}
}

// Record notes a change. Setting "0" on an attribute that had no value is
// not a change.
func (l *ChangeLog) Record(contactID int64, field, old string, oldSet bool, value string) {
	if value == "0" && !oldSet {
		return
	}

	c := Change{Field: field, Old: old, OldSet: oldSet, New: value}
	list, seen := l.changes[contactID]
	if !seen {
		l.order = append(l.order, contactID)
	}
	for i := range list {
		if list[i].Field == field {
			list[i] = c
			return
		}
	}
	l.changes[contactID] = append(list, c)
}

// Contacts returns the changed contacts in order.
func (l *ChangeLog) Contacts() []int64 {
	return slices.Clone(l.order)
}

// Changes returns the changes of a contact.
func (l *ChangeLog) Changes(contactID int64) []Change {
	return slices.Clone(l.changes[contactID])
}

// Len returns the number of changed contacts.
func (l *ChangeLog) Len() int {
	return len(l.order)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
