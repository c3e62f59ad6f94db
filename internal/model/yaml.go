package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// eventsFile is the on-disk layout of a hand-written events file:
//
//	events:
//	  - city: Амстердам
//	    title: ...
type eventsFile struct {
	Events []EventInput `yaml:"events"`
}

// ParseEventsYAML decodes an events file and validates every record in
// order. The first invalid record fails the whole file.
func ParseEventsYAML(data []byte) ([]Event, error) {
	var f eventsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("events file: %w", err)
	}

	out := make([]Event, 0, len(f.Events))
	for i, in := range f.Events {
		ev, err := NewEvent(in)
		if err != nil {
			return nil, fmt.Errorf("events file: event %d: %w", i+1, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
