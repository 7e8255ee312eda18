package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SectionsDoNotOverlap(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(context.Background(), func(tx *Tx) error {
				n := active.Add(1)
				defer active.Add(-1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				_, err := tx.InsertEvents("b1", []model.Event{testutil.Event(time.Duration(i)*time.Second, 0)})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	ids := eventIDs(allEvents(t, s, "b1"))
	assert.Len(t, ids, 20)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, ids)
}

func TestDo_SeesOwnWrites(t *testing.T) {
	s := createTestStore(t)

	err := s.Do(context.Background(), func(tx *Tx) error {
		if _, err := tx.CreateBucket(testutil.Bucket("b1")); err != nil {
			return err
		}
		if _, err := tx.InsertEvents("b1", []model.Event{testutil.Event(0, time.Second)}); err != nil {
			return err
		}
		n, err := tx.GetEventCount("b1", time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
}

func TestDo_ReturnsCallbackError(t *testing.T) {
	s := createTestStore(t)

	err := s.Do(context.Background(), func(tx *Tx) error {
		_, err := tx.GetBucket("nope")
		return err
	})
	assert.True(t, IsNoSuchBucket(err))

	// An error does not poison the store.
	_, err = s.GetBuckets(context.Background())
	assert.NoError(t, err)
}

func TestDo_PanicPoisonsStore(t *testing.T) {
	s := createTestStore(t)
	createTestBucket(t, s, "b1")

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.Do(context.Background(), func(tx *Tx) error {
			panic("boom")
		})
	})

	_, err := s.GetBucket(context.Background(), "b1")
	assert.True(t, IsUnavailable(err), "got %v", err)

	called := false
	err = s.Do(context.Background(), func(tx *Tx) error {
		called = true
		return nil
	})
	assert.True(t, IsUnavailable(err))
	assert.False(t, called)
}

func TestDo_TxInvalidAfterSection(t *testing.T) {
	s := createTestStore(t)

	var leaked *Tx
	require.NoError(t, s.Do(context.Background(), func(tx *Tx) error {
		leaked = tx
		return nil
	}))

	_, err := leaked.GetBuckets()
	assert.True(t, IsUnavailable(err))
}

func TestDo_CancelledContextStillCompletes(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateBucket(ctx, testutil.Bucket("b1"))
	require.NoError(t, err)

	_, err = s.GetBucket(context.Background(), "b1")
	assert.NoError(t, err)
}

func TestDo_ContextValuesVisible(t *testing.T) {
	s := createTestStore(t)
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	require.NoError(t, s.Do(ctx, func(tx *Tx) error {
		assert.Equal(t, "v", tx.Context().Value(key{}))
		return nil
	}))
}
