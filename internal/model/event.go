package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"time"
)

// Event is a timestamped, duration-bearing record of arbitrary data.
//
// ID is assigned by the store; zero means "not yet stored". IDs are
// strictly increasing per bucket and never reused.
type Event struct {
	ID        int64
	Timestamp time.Time
	Duration  time.Duration
	Data      map[string]any
}

// eventJSON is the wire shape of an Event. Duration is float seconds.
type eventJSON struct {
	ID        int64          `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  float64        `json:"duration"`
	Data      map[string]any `json:"data"`
}

// End returns the instant the event stops covering (Timestamp + Duration).
func (e Event) End() time.Time {
	return e.Timestamp.Add(e.Duration)
}

// Clone returns a copy of the event whose Data map can be modified
// without affecting the original. Nested values are shared.
func (e Event) Clone() Event {
	c := e
	if e.Data != nil {
		c.Data = maps.Clone(e.Data)
	}
	return c
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(eventJSON{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC(),
		Duration:  DurationSeconds(e.Duration),
		Data:      data,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// Negative or non-finite durations are rejected.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := SecondsToDuration(raw.Duration)
	if err != nil {
		return fmt.Errorf("event duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("event duration: negative duration %v", raw.Duration)
	}
	*e = Event{
		ID:        raw.ID,
		Timestamp: raw.Timestamp.UTC(),
		Duration:  d,
		Data:      raw.Data,
	}
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return nil
}

// DurationSeconds converts a duration to float seconds.
func DurationSeconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}

// SecondsToDuration converts float seconds to a duration, rounding to the
// nearest nanosecond.
func SecondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("non-finite seconds: %v", secs)
	}
	ns := math.Round(secs * float64(time.Second))
	if ns > math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("seconds out of range: %v", secs)
	}
	return time.Duration(ns), nil
}
