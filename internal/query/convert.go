package query

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/tempo/internal/model"
)

// Events cross into scripts as dicts of this shape:
//
//	{"id": 3, "timestamp": "2000-01-01T00:00:00Z", "duration": 1.5, "data": {...}}
//
// timestamp is RFC 3339 with nanoseconds, duration is in seconds.
const (
	fieldID        = "id"
	fieldTimestamp = "timestamp"
	fieldDuration  = "duration"
	fieldData      = "data"
)

// EventValue converts an event to its script representation.
func EventValue(e model.Event) (Value, error) {
	data, err := FromNative(e.Data)
	if err != nil {
		return nil, fmt.Errorf("event %d data: %w", e.ID, err)
	}
	if e.Data == nil {
		data = Dict{}
	}
	return Dict{
		fieldID:        Number(e.ID),
		fieldTimestamp: String(e.Timestamp.UTC().Format(time.RFC3339Nano)),
		fieldDuration:  Number(model.DurationSeconds(e.Duration)),
		fieldData:      data,
	}, nil
}

// EventsValue converts events to a List of event dicts.
func EventsValue(events []model.Event) (List, error) {
	out := make(List, len(events))
	for i, e := range events {
		v, err := EventValue(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ValueEvent converts an event dict back to an event. A missing id is 0.
func ValueEvent(v Value) (model.Event, error) {
	d, ok := v.(Dict)
	if !ok {
		return model.Event{}, fmt.Errorf("expected event dict, got %s", TypeName(v))
	}

	var e model.Event
	if id, ok := d[fieldID]; ok {
		n, ok := id.(Number)
		if !ok || float64(n) != math.Trunc(float64(n)) {
			return model.Event{}, fmt.Errorf("event id must be an integer, got %s", TypeName(id))
		}
		e.ID = int64(n)
	}

	ts, ok := d[fieldTimestamp].(String)
	if !ok {
		return model.Event{}, fmt.Errorf("event timestamp must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, string(ts))
	if err != nil {
		return model.Event{}, fmt.Errorf("event timestamp: %w", err)
	}
	e.Timestamp = t.UTC()

	secs, ok := d[fieldDuration].(Number)
	if !ok {
		return model.Event{}, fmt.Errorf("event duration must be a number")
	}
	e.Duration, err = model.SecondsToDuration(float64(secs))
	if err != nil {
		return model.Event{}, fmt.Errorf("event duration: %w", err)
	}
	if e.Duration < 0 {
		return model.Event{}, fmt.Errorf("event duration must not be negative")
	}

	switch data := d[fieldData].(type) {
	case Dict:
		e.Data = Native(data).(map[string]any)
	case nil:
		e.Data = map[string]any{}
	default:
		return model.Event{}, fmt.Errorf("event data must be a dict, got %s", TypeName(data))
	}
	return e, nil
}

// ValueEvents converts a List of event dicts to events.
func ValueEvents(v Value) ([]model.Event, error) {
	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("expected list of events, got %s", TypeName(v))
	}
	events := make([]model.Event, len(list))
	for i, elem := range list {
		e, err := ValueEvent(elem)
		if err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
		events[i] = e
	}
	return events, nil
}
