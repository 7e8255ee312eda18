package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithClock(testutil.NewDeterministicClock(testutil.Epoch).Now)}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBucket creates a bucket with conventional metadata.
func createTestBucket(t *testing.T, s *Store, id string) model.Bucket {
	t.Helper()
	b, err := s.CreateBucket(context.Background(), testutil.Bucket(id))
	if err != nil {
		t.Fatalf("CreateBucket(%q) failed: %v", id, err)
	}
	return b
}

// insertTestEvents inserts events and returns them with assigned ids.
func insertTestEvents(t *testing.T, s *Store, bucketID string, events ...model.Event) []model.Event {
	t.Helper()
	stored, err := s.InsertEvents(context.Background(), bucketID, events)
	if err != nil {
		t.Fatalf("InsertEvents(%q) failed: %v", bucketID, err)
	}
	return stored
}

// allEvents returns every event in the bucket, newest first.
func allEvents(t *testing.T, s *Store, bucketID string) []model.Event {
	t.Helper()
	events, err := s.GetEvents(context.Background(), bucketID, EventFilter{})
	if err != nil {
		t.Fatalf("GetEvents(%q) failed: %v", bucketID, err)
	}
	return events
}

// eventIDs extracts ids in order.
func eventIDs(events []model.Event) []int64 {
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

func at(offset time.Duration) time.Time {
	return testutil.Epoch.Add(offset)
}

// nextEventID reads the bucket's id counter directly.
func nextEventID(t *testing.T, s *Store, bucketID string) int64 {
	t.Helper()
	var next int64
	err := s.db.QueryRowContext(context.Background(),
		`SELECT next_event_id FROM buckets WHERE id = ?`, bucketID,
	).Scan(&next)
	if err != nil {
		t.Fatalf("read next_event_id(%q) failed: %v", bucketID, err)
	}
	return next
}
