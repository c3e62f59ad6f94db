package draft

import (
	"context"
	"encoding/json"
	"fmt"

	"weekendbot/internal/model"
)

// DefaultKey is the well-known key of the draft set.
const DefaultKey = "events"

// Store saves, loads and clears the draft set. A store holds at most one
// draft set under a single key: Save overwrites, Clear removes, and Load of a
// missing key yields an empty list. Stores assume a single writer.
type Store interface {
	Save(ctx context.Context, events []model.Event) error
	Load(ctx context.Context) ([]model.Event, error)
	Clear(ctx context.Context) error
}

// PersistenceError wraps a serialization or storage failure.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("draft: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func encode(events []model.Event) ([]byte, error) {
	records := make([]model.EventInput, 0, len(events))
	for _, ev := range events {
		records = append(records, ev.Input())
	}
	return json.MarshalIndent(records, "", "  ")
}

// decode rebuilds every record through model.NewEvent. A single invalid
// record fails the whole decode.
func decode(data []byte) ([]model.Event, error) {
	var records []model.EventInput
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(records))
	for i, rec := range records {
		ev, err := model.NewEvent(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
