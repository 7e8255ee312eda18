package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tempo/internal/model"
)

// Heartbeat merges a heartbeat into the bucket's newest event, or stores
// it as a new event.
//
// With last the newest stored event:
//  1. Empty bucket: insert hb.
//  2. gap = hb.Timestamp - last.End(). A negative gap (out-of-order
//     heartbeat) never merges.
//  3. 0 <= gap <= pulsetime and equal data: extend last in place, keeping
//     its id and timestamp. No id is consumed.
//  4. Otherwise: insert hb with a fresh id.
//
// Returns the stored or updated event.
func (tx *Tx) Heartbeat(bucketID string, hb model.Event, pulsetime time.Duration) (_ model.Event, err error) {
	done, err := tx.begin("heartbeat")
	if err != nil {
		return model.Event{}, err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(bucketID)
	if err != nil {
		return model.Event{}, err
	}
	if err := validateEvent(hb); err != nil {
		return model.Event{}, fmt.Errorf("heartbeat: %w", err)
	}

	last, err := tx.latestEvent(key)
	if err != nil {
		return model.Event{}, fmt.Errorf("heartbeat: %w", err)
	}

	if last != nil {
		if merged, ok := mergeHeartbeat(*last, hb, pulsetime); ok {
			if err := tx.updateEnd(key, merged); err != nil {
				return model.Event{}, fmt.Errorf("heartbeat: %w", err)
			}
			tx.s.newest.set(key, &merged)
			tx.s.metrics.heartbeat(true)
			return merged, nil
		}
	}

	stored, err := tx.insertEvents(key, []model.Event{hb})
	if err != nil {
		return model.Event{}, fmt.Errorf("heartbeat: %w", err)
	}
	tx.s.metrics.heartbeat(false)
	return stored[0], nil
}

// mergeHeartbeat returns last extended to cover hb when hb continues it:
// the gap between them is in [0, pulsetime] and the data is structurally
// equal. The returned event keeps last's id and timestamp.
func mergeHeartbeat(last, hb model.Event, pulsetime time.Duration) (model.Event, bool) {
	gap := hb.Timestamp.Sub(last.End())
	if gap < 0 || gap > pulsetime {
		return model.Event{}, false
	}
	if !model.DataEqual(last.Data, hb.Data) {
		return model.Event{}, false
	}

	merged := last.Clone()
	if d := hb.End().Sub(last.Timestamp); d > merged.Duration {
		merged.Duration = d
	}
	return merged, true
}

// updateEnd persists a new duration for an existing event.
func (tx *Tx) updateEnd(key int64, e model.Event) error {
	_, err := tx.s.db.ExecContext(tx.ctx,
		`UPDATE events SET endtime = ? WHERE bucket_key = ? AND id = ?`,
		e.End().UnixNano(), key, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	return nil
}

// Heartbeat merges or stores a heartbeat in its own exclusive section.
// See Tx.Heartbeat.
func (s *Store) Heartbeat(ctx context.Context, bucketID string, hb model.Event, pulsetime time.Duration) (model.Event, error) {
	var out model.Event
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Heartbeat(bucketID, hb, pulsetime)
		return err
	})
	return out, err
}
