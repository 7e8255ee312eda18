package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/testutil"
)

// testInterval covers the first day after testutil.Epoch.
var testInterval = testutil.Interval(0, 24*time.Hour)

// fakeReader serves fixed buckets and events without a database.
type fakeReader struct {
	buckets map[string]model.Bucket
	events  map[string][]model.Event
	err     error
}

func (f *fakeReader) GetEvents(bucketID string, _ store.EventFilter) ([]model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	events, ok := f.events[bucketID]
	if !ok {
		return nil, store.ErrNoSuchBucket
	}
	return events, nil
}

func (f *fakeReader) GetBuckets() (map[string]model.Bucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.buckets, nil
}

// eval evaluates src against testInterval and an empty reader.
func eval(t *testing.T, src string, opts ...Option) (Value, error) {
	t.Helper()
	return EvaluateString(context.Background(), src, testInterval, &fakeReader{}, opts...)
}

// createTestStore opens a store in a temp directory.
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(testutil.NewDeterministicClock(testutil.Epoch).Now))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedStore creates bucket id and inserts events into it.
func seedStore(t *testing.T, s *store.Store, id string, events ...model.Event) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.CreateBucket(ctx, testutil.Bucket(id)); err != nil {
		t.Fatalf("CreateBucket(%q) failed: %v", id, err)
	}
	if len(events) == 0 {
		return
	}
	if _, err := s.InsertEvents(ctx, id, events); err != nil {
		t.Fatalf("InsertEvents(%q) failed: %v", id, err)
	}
}

// evalStore evaluates src against testInterval inside one section of s.
func evalStore(t *testing.T, s *store.Store, src string, opts ...Option) (Value, error) {
	t.Helper()
	var out Value
	err := s.Do(context.Background(), func(tx *store.Tx) error {
		var err error
		out, err = EvaluateString(tx.Context(), src, testInterval, tx, opts...)
		return err
	})
	return out, err
}
