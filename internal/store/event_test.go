package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEvents_AssignsIncreasingIDs(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	first := insertTestEvents(t, s, "b1",
		testutil.Event(0, time.Second),
		testutil.Event(time.Second, time.Second),
	)
	second := insertTestEvents(t, s, "b1", testutil.Event(2*time.Second, time.Second))

	assert.Equal(t, []int64{1, 2}, eventIDs(first))
	assert.Equal(t, []int64{3}, eventIDs(second))
}

func TestInsertEvents_IDsNotReusedAfterDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")

	stored := insertTestEvents(t, s, "b1", testutil.Event(0, time.Second), testutil.Event(time.Second, 0))
	require.NoError(t, s.DeleteEventsByID(ctx, "b1", []int64{stored[1].ID}))

	again := insertTestEvents(t, s, "b1", testutil.Event(2*time.Second, 0))
	assert.Equal(t, int64(3), again[0].ID)
}

func TestInsertEvents_IDsPerBucket(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "a")
	createTestBucket(t, s, "b")

	insertTestEvents(t, s, "a", testutil.Event(0, 0), testutil.Event(0, 0))
	stored := insertTestEvents(t, s, "b", testutil.Event(0, 0))
	assert.Equal(t, int64(1), stored[0].ID)
}

func TestInsertEvents_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	e := testutil.Event(time.Minute+123*time.Nanosecond, 1500*time.Millisecond,
		"app", "editor", "title", "main.go", "nested", map[string]any{"x": []any{1.0, "y"}})
	insertTestEvents(t, s, "b1", e)

	events := allEvents(t, s, "b1")
	require.Len(t, events, 1)
	assert.True(t, e.Timestamp.Equal(events[0].Timestamp))
	assert.Equal(t, e.Duration, events[0].Duration)
	assert.Equal(t, e.Data, events[0].Data)
}

func TestInsertEvents_DoesNotMutateInput(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	in := []model.Event{testutil.Event(0, time.Second, "k", "v")}
	stored := insertTestEvents(t, s, "b1", in...)

	assert.Zero(t, in[0].ID)
	stored[0].Data["k"] = "changed"
	assert.Equal(t, "v", in[0].Data["k"])
}

func TestInsertEvents_NilDataStoredAsEmpty(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	insertTestEvents(t, s, "b1", model.Event{Timestamp: testutil.Epoch})
	events := allEvents(t, s, "b1")
	require.Len(t, events, 1)
	assert.NotNil(t, events[0].Data)
	assert.Empty(t, events[0].Data)
}

func TestInsertEvents_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")

	tests := []struct {
		name string
		bad  model.Event
	}{
		{"negative duration", testutil.Event(time.Second, -time.Second)},
		{"unencodable data", testutil.Event(time.Second, 0, "n", math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InsertEvents(ctx, "b1", []model.Event{testutil.Event(0, time.Second), tt.bad})
			require.Error(t, err)

			count, err := s.GetEventCount(ctx, "b1", time.Time{}, time.Time{})
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}

	// Failed batches consume no ids.
	stored := insertTestEvents(t, s, "b1", testutil.Event(0, 0))
	assert.Equal(t, int64(1), stored[0].ID)
}

func TestInsertEvents_RejectsUnstorableInstants(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")

	tests := []struct {
		name string
		e    model.Event
	}{
		{"zero timestamp", model.Event{Duration: time.Second}},
		{"before 1677", model.Event{Timestamp: time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)}},
		{"after 2262", model.Event{Timestamp: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}},
		{"end after 2262", model.Event{Timestamp: time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC), Duration: 200 * 24 * time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InsertEvents(ctx, "b1", []model.Event{tt.e})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEvent)

			_, err = s.Heartbeat(ctx, "b1", tt.e, time.Minute)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
	assert.Empty(t, allEvents(t, s, "b1"))
}

func TestInsertEvents_RoundTripsRangeEdges(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	early := time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2250, 6, 1, 12, 0, 0, 5, time.UTC)
	insertTestEvents(t, s, "b1",
		model.Event{Timestamp: early, Duration: time.Second},
		model.Event{Timestamp: late},
	)

	events := allEvents(t, s, "b1")
	require.Len(t, events, 2)
	assert.True(t, late.Equal(events[0].Timestamp), "got %s", events[0].Timestamp)
	assert.True(t, early.Equal(events[1].Timestamp), "got %s", events[1].Timestamp)
}

func TestGetEvents_BoundsOutsideStorableRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")
	insertTestEvents(t, s, "b1", testutil.Event(0, time.Second))

	f := EventFilter{
		Start: time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	events, err := s.GetEvents(ctx, "b1", f)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	f = EventFilter{Start: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}
	events, err = s.GetEvents(ctx, "b1", f)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInsertEvents_NoSuchBucket(t *testing.T) {
	s := createTestStore(t)
	_, err := s.InsertEvents(context.Background(), "nope", []model.Event{testutil.Event(0, 0)})
	assert.True(t, IsNoSuchBucket(err))
}

func TestGetEvents_NewestFirstWithTieBreak(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	insertTestEvents(t, s, "b1",
		testutil.Event(time.Second, 0, "n", 1.0),
		testutil.Event(3*time.Second, 0, "n", 2.0),
		testutil.Event(time.Second, 0, "n", 3.0),
		testutil.Event(2*time.Second, 0, "n", 4.0),
	)

	events := allEvents(t, s, "b1")
	assert.Equal(t, []int64{2, 4, 3, 1}, eventIDs(events))
}

func TestGetEvents_RangeIsClosedIntersection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")

	insertTestEvents(t, s, "b1",
		testutil.Event(0, 10*time.Second),              // id 1: [0s, 10s]
		testutil.Event(20*time.Second, 10*time.Second), // id 2: [20s, 30s]
		testutil.Event(40*time.Second, 0),              // id 3: [40s, 40s]
	)

	tests := []struct {
		name string
		f    EventFilter
		want []int64
	}{
		{"unbounded", EventFilter{}, []int64{3, 2, 1}},
		{"touching both ends", EventFilter{Start: at(10 * time.Second), End: at(20 * time.Second)}, []int64{2, 1}},
		{"gap between events", EventFilter{Start: at(11 * time.Second), End: at(19 * time.Second)}, []int64{}},
		{"zero duration at start", EventFilter{Start: at(40 * time.Second), End: at(50 * time.Second)}, []int64{3}},
		{"zero duration at end", EventFilter{Start: at(35 * time.Second), End: at(40 * time.Second)}, []int64{3}},
		{"start only", EventFilter{Start: at(25 * time.Second)}, []int64{3, 2}},
		{"end only", EventFilter{End: at(5 * time.Second)}, []int64{1}},
		{"limit", EventFilter{Limit: 2}, []int64{3, 2}},
		{"zero limit means unlimited", EventFilter{Limit: 0}, []int64{3, 2, 1}},
		{"negative limit means unlimited", EventFilter{Limit: -1}, []int64{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.GetEvents(ctx, "b1", tt.f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, eventIDs(events))

			if tt.f.Limit <= 0 {
				count, err := s.GetEventCount(ctx, "b1", tt.f.Start, tt.f.End)
				require.NoError(t, err)
				assert.Equal(t, int64(len(tt.want)), count)
			}
		})
	}
}

func TestGetEvents_EmptyBucketReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	events := allEvents(t, s, "b1")
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestGetEvents_IntervalFilter(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")
	insertTestEvents(t, s, "b1", testutil.Event(0, time.Second), testutil.Event(time.Hour, time.Second))

	events, err := s.GetEvents(context.Background(), "b1", IntervalFilter(testutil.Interval(30*time.Minute, 2*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, eventIDs(events))
}

func TestGetEventCount_NoSuchBucket(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetEventCount(context.Background(), "nope", time.Time{}, time.Time{})
	assert.True(t, IsNoSuchBucket(err))
}

func TestDeleteEventsByID_IgnoresAbsentIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "b1")
	insertTestEvents(t, s, "b1", testutil.Event(0, 0), testutil.Event(time.Second, 0))

	require.NoError(t, s.DeleteEventsByID(ctx, "b1", []int64{1, 42}))
	assert.Equal(t, []int64{2}, eventIDs(allEvents(t, s, "b1")))

	require.NoError(t, s.DeleteEventsByID(ctx, "b1", nil))
	assert.Len(t, allEvents(t, s, "b1"), 1)
}

func TestDeleteEventsByID_OtherBucketUntouched(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBucket(t, s, "a")
	createTestBucket(t, s, "b")
	insertTestEvents(t, s, "a", testutil.Event(0, 0))
	insertTestEvents(t, s, "b", testutil.Event(0, 0))

	require.NoError(t, s.DeleteEventsByID(ctx, "a", []int64{1}))
	assert.Empty(t, allEvents(t, s, "a"))
	assert.Len(t, allEvents(t, s, "b"), 1)
}

func TestDeleteEventsByID_NoSuchBucket(t *testing.T) {
	s := createTestStore(t)
	err := s.DeleteEventsByID(context.Background(), "nope", []int64{1})
	assert.True(t, IsNoSuchBucket(err))
}
