package transform

import (
	"time"

	"github.com/roach88/tempo/internal/model"
)

// DefaultPulsetime is the flood gap used when a script does not pass one.
const DefaultPulsetime = 5 * time.Second

// Flood fills short gaps between consecutive events so the result covers
// time continuously where the input was only briefly interrupted.
//
// Events are first ordered by timestamp. For each event after the first,
// with prev the last event kept so far:
//   - same data and gap <= pulsetime (overlaps included): the event is
//     absorbed into prev, which is extended to cover it
//   - different data and 0 < gap <= pulsetime: prev is extended up to
//     the event's start
//   - otherwise the event is kept unchanged
//
// The result is in ascending timestamp order.
func Flood(events []model.Event, pulsetime time.Duration) []model.Event {
	sorted := SortByTimestamp(events)
	out := make([]model.Event, 0, len(sorted))

	for _, e := range sorted {
		if len(out) == 0 {
			out = append(out, e)
			continue
		}
		prev := &out[len(out)-1]
		gap := e.Timestamp.Sub(prev.End())

		switch {
		case gap <= pulsetime && model.DataEqual(prev.Data, e.Data):
			if end := e.End(); end.After(prev.End()) {
				prev.Duration = end.Sub(prev.Timestamp)
			}
		case gap > 0 && gap <= pulsetime:
			prev.Duration += gap
			out = append(out, e)
		default:
			out = append(out, e)
		}
	}
	return out
}
