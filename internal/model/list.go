package model

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a list handle does not exist.
var ErrNotFound = errors.New("event not found")

// Entry pairs an Event with its handle in the working list. Handles are
// session-local and never persisted.
type Entry struct {
	ID    uuid.UUID `json:"id"`
	Event Event     `json:"event"`
}

// EventList is the ordered working list. Insertion order is display order.
// It is not safe for concurrent use; the owning session serializes access.
type EventList struct {
	entries []Entry
}

// NewEventList returns a list holding events in the given order.
func NewEventList(events ...Event) *EventList {
	l := &EventList{}
	l.Replace(events)
	return l
}

// Add appends ev and returns its handle.
func (l *EventList) Add(ev Event) uuid.UUID {
	id := uuid.New()
	l.entries = append(l.entries, Entry{ID: id, Event: ev})
	return id
}

// Remove deletes the entry with the given handle.
func (l *EventList) Remove(id uuid.UUID) error {
	i := l.index(id)
	if i < 0 {
		return ErrNotFound
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// Move shifts the entry by delta positions, clamped to the list bounds.
func (l *EventList) Move(id uuid.UUID, delta int) error {
	i := l.index(id)
	if i < 0 {
		return ErrNotFound
	}
	j := min(max(i+delta, 0), len(l.entries)-1)
	e := l.entries[i]
	if j < i {
		copy(l.entries[j+1:i+1], l.entries[j:i])
	} else {
		copy(l.entries[i:j], l.entries[i+1:j+1])
	}
	l.entries[j] = e
	return nil
}

// Replace discards the current entries and adds events in order.
func (l *EventList) Replace(events []Event) {
	l.entries = make([]Entry, 0, len(events))
	for _, ev := range events {
		l.Add(ev)
	}
}

// Clear empties the list.
func (l *EventList) Clear() {
	l.entries = nil
}

func (l *EventList) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in display order.
func (l *EventList) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Events returns a copy of the events in display order.
func (l *EventList) Events() []Event {
	out := make([]Event, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Event)
	}
	return out
}

func (l *EventList) index(id uuid.UUID) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
