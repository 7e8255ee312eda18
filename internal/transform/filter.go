package transform

import (
	"slices"

	"github.com/roach88/tempo/internal/model"
)

// FilterKeyvals keeps the events whose data[key] is structurally equal to
// one of vals. Events without key are dropped.
func FilterKeyvals(events []model.Event, key string, vals []any) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		v, ok := e.Data[key]
		if ok && containsValue(vals, v) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// ExcludeKeyvals is the complement of FilterKeyvals: it drops the events
// whose data[key] matches one of vals and keeps everything else,
// including events without key.
func ExcludeKeyvals(events []model.Event, key string, vals []any) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		v, ok := e.Data[key]
		if ok && containsValue(vals, v) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// Limit returns the first n events. n <= 0 yields an empty result.
func Limit(events []model.Event, n int) []model.Event {
	n = max(0, min(n, len(events)))
	return cloneAll(events[:n])
}

func containsValue(vals []any, v any) bool {
	return slices.ContainsFunc(vals, func(candidate any) bool {
		return model.ValueEqual(candidate, v)
	})
}

func cloneAll(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
