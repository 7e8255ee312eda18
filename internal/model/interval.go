package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeInterval is a closed time range [Start, End] with Start <= End.
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// NewTimeInterval creates an interval, normalizing both bounds to UTC.
// Returns an error if end is before start.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if end.Before(start) {
		return TimeInterval{}, fmt.Errorf("interval end %s before start %s",
			end.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano))
	}
	return TimeInterval{Start: start.UTC(), End: end.UTC()}, nil
}

// ParseTimeInterval parses "<RFC3339>/<RFC3339>".
//
// Example: "2000-01-01T00:00:00Z/2000-01-02T00:00:00Z"
func ParseTimeInterval(s string) (TimeInterval, error) {
	startStr, endStr, ok := strings.Cut(s, "/")
	if !ok {
		return TimeInterval{}, fmt.Errorf("invalid interval %q: expected <start>/<end>", s)
	}
	start, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(startStr))
	if err != nil {
		return TimeInterval{}, fmt.Errorf("invalid interval start: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(endStr))
	if err != nil {
		return TimeInterval{}, fmt.Errorf("invalid interval end: %w", err)
	}
	return NewTimeInterval(start, end)
}

// Duration returns End - Start.
func (ti TimeInterval) Duration() time.Duration {
	return ti.End.Sub(ti.Start)
}

// Intersects reports whether the event's span [Timestamp, Timestamp+Duration]
// overlaps the interval. Zero-duration events inside the interval count.
func (ti TimeInterval) Intersects(e Event) bool {
	return !e.Timestamp.After(ti.End) && !e.End().Before(ti.Start)
}

// String returns the "<start>/<end>" form accepted by ParseTimeInterval.
func (ti TimeInterval) String() string {
	return ti.Start.UTC().Format(time.RFC3339Nano) + "/" + ti.End.UTC().Format(time.RFC3339Nano)
}

// MarshalText implements encoding.TextMarshaler.
func (ti TimeInterval) MarshalText() ([]byte, error) {
	return []byte(ti.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ti *TimeInterval) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeInterval(string(b))
	if err != nil {
		return err
	}
	*ti = parsed
	return nil
}
