package transform

import (
	"slices"

	"github.com/roach88/tempo/internal/model"
)

// SortByDuration orders events longest first. Equal durations keep
// their input order.
func SortByDuration(events []model.Event) []model.Event {
	out := cloneAll(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		switch {
		case a.Duration > b.Duration:
			return -1
		case a.Duration < b.Duration:
			return 1
		}
		return 0
	})
	return out
}

// SortByTimestamp orders events oldest first. Equal timestamps keep
// their input order.
func SortByTimestamp(events []model.Event) []model.Event {
	out := cloneAll(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
