package testutil

import (
	"time"

	"github.com/roach88/tempo/internal/model"
)

// Event builds an event starting offset after Epoch.
//
// kv is a flat list of data key/value pairs:
//
//	testutil.Event(time.Minute, 5*time.Second, "app", "editor")
//
// Panics on an odd kv length or a non-string key (test misconfiguration).
func Event(offset, duration time.Duration, kv ...any) model.Event {
	return model.Event{
		Timestamp: Epoch.Add(offset),
		Duration:  duration,
		Data:      Data(kv...),
	}
}

// Data builds an event data map from key/value pairs.
func Data(kv ...any) map[string]any {
	if len(kv)%2 != 0 {
		panic("testutil.Data: odd number of key/value arguments")
	}
	data := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("testutil.Data: keys must be strings")
		}
		data[key] = kv[i+1]
	}
	return data
}

// Bucket builds a bucket with conventional test metadata.
func Bucket(id string) model.Bucket {
	return model.Bucket{
		ID:       id,
		Type:     "currentwindow",
		Client:   "tempo-test",
		Hostname: "testhost",
	}
}

// Interval returns the interval [Epoch+from, Epoch+to].
func Interval(from, to time.Duration) model.TimeInterval {
	return model.TimeInterval{Start: Epoch.Add(from), End: Epoch.Add(to)}
}
