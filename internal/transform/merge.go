package transform

import (
	"strings"
	"time"

	"github.com/roach88/tempo/internal/model"
)

// MergeByKeys groups events by the values of keys and returns one event
// per distinct value tuple.
//
// Each result carries the timestamp and id of the first event in its
// group, the summed duration of the group, and data restricted to keys.
// Events missing any of the keys are dropped. Groups appear in order of
// first occurrence. With no keys, the result is empty.
func MergeByKeys(events []model.Event, keys []string) []model.Event {
	out := []model.Event{}
	if len(keys) == 0 {
		return out
	}

	groups := make(map[string]int)
	for _, e := range events {
		groupKey, data, ok := keyTuple(e, keys)
		if !ok {
			continue
		}
		if i, seen := groups[groupKey]; seen {
			out[i].Duration += e.Duration
			continue
		}
		groups[groupKey] = len(out)
		out = append(out, model.Event{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Duration:  e.Duration,
			Data:      data,
		})
	}
	return out
}

// keyTuple returns a canonical grouping key for the event's values of
// keys together with the projected data.
func keyTuple(e model.Event, keys []string) (string, map[string]any, bool) {
	var sb strings.Builder
	data := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := e.Data[k]
		if !ok {
			return "", nil, false
		}
		enc, err := model.EqualityKey(v)
		if err != nil {
			return "", nil, false
		}
		sb.Write(enc)
		sb.WriteByte(0)
		data[k] = v
	}
	return sb.String(), data, true
}

// SumDurations returns the total duration of events.
func SumDurations(events []model.Event) time.Duration {
	var total time.Duration
	for _, e := range events {
		total += e.Duration
	}
	return total
}
