package transform

import (
	"time"

	"github.com/roach88/tempo/internal/model"
)

// FilterPeriodIntersect clips events to the periods covered by filter.
//
// For every pair of an event and a filter event whose spans overlap by
// a positive amount, the result holds a copy of the event trimmed to the
// overlap. An event overlapping several filter periods appears once per
// period. The result is in ascending timestamp order.
func FilterPeriodIntersect(events, filter []model.Event) []model.Event {
	periods := SortByTimestamp(filter)
	out := []model.Event{}

	for _, e := range SortByTimestamp(events) {
		for _, p := range periods {
			start := latest(e.Timestamp, p.Timestamp)
			end := earliest(e.End(), p.End())
			if !end.After(start) {
				continue
			}
			clipped := e.Clone()
			clipped.Timestamp = start
			clipped.Duration = end.Sub(start)
			out = append(out, clipped)
		}
	}
	return SortByTimestamp(out)
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
