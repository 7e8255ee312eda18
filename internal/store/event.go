package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/tempo/internal/model"
)

// EventFilter scopes a range query.
//
// A zero Start or End leaves that side unbounded. Limit <= 0 means no limit.
type EventFilter struct {
	Start time.Time
	End   time.Time
	Limit int
}

// IntervalFilter returns a filter covering exactly the interval.
func IntervalFilter(ti model.TimeInterval) EventFilter {
	return EventFilter{Start: ti.Start, End: ti.End}
}

// InsertEvents stores events in list order, assigning each a fresh
// per-bucket id. Either all events are stored or none are.
//
// Returns the stored events (ids populated, timestamps in UTC) in the same
// order. Returns ErrNoSuchBucket if the bucket is absent.
func (tx *Tx) InsertEvents(bucketID string, events []model.Event) (_ []model.Event, err error) {
	done, err := tx.begin("insert_events")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(bucketID)
	if err != nil {
		return nil, err
	}

	stored, err := tx.insertEvents(key, events)
	if err != nil {
		return nil, fmt.Errorf("insert events: %w", err)
	}
	return stored, nil
}

// insertEvents writes events for a resolved bucket key in one SQLite
// transaction and updates the newest-event index.
func (tx *Tx) insertEvents(key int64, events []model.Event) ([]model.Event, error) {
	encoded, err := encodeEvents(events)
	if err != nil {
		return nil, err
	}

	sqlTx, err := tx.s.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	stored, err := writeEvents(tx.ctx, sqlTx, key, events, encoded)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	for _, e := range stored {
		tx.s.newest.observe(key, e)
	}
	return stored, nil
}

// encodeEvents validates events and encodes their data for storage,
// before anything touches the database.
func encodeEvents(events []model.Event) ([]string, error) {
	encoded := make([]string, len(events))
	for i, e := range events {
		if err := validateEvent(e); err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
		data, err := marshalData(e.Data)
		if err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
		encoded[i] = data
	}
	return encoded, nil
}

// writeEvents inserts pre-encoded events inside sqlTx, assigning ids from
// the bucket's next_event_id counter, and returns them as stored.
func writeEvents(ctx context.Context, sqlTx *sql.Tx, key int64, events []model.Event, encoded []string) ([]model.Event, error) {
	var nextID int64
	if err := sqlTx.QueryRowContext(ctx,
		`SELECT next_event_id FROM buckets WHERE key = ?`, key,
	).Scan(&nextID); err != nil {
		return nil, fmt.Errorf("read next event id: %w", err)
	}

	stored := make([]model.Event, len(events))
	for i, e := range events {
		e = e.Clone()
		e.ID = nextID
		e.Timestamp = e.Timestamp.UTC()
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		nextID++

		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO events (bucket_key, id, starttime, endtime, data)
			VALUES (?, ?, ?, ?, ?)
		`, key, e.ID, e.Timestamp.UnixNano(), e.End().UnixNano(), encoded[i]); err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
		stored[i] = e
	}

	if _, err := sqlTx.ExecContext(ctx,
		`UPDATE buckets SET next_event_id = ? WHERE key = ?`, nextID, key,
	); err != nil {
		return nil, fmt.Errorf("advance next event id: %w", err)
	}
	return stored, nil
}

// Instants are stored as int64 Unix nanoseconds, which covers
// 1677-09-21 to 2262-04-11.
var (
	minInstant = time.Unix(0, math.MinInt64).UTC()
	maxInstant = time.Unix(0, math.MaxInt64).UTC()
)

// checkInstant fails unless t survives the round trip through UnixNano.
func checkInstant(what string, t time.Time) error {
	if t.Before(minInstant) || t.After(maxInstant) {
		return fmt.Errorf("%s %s outside the storable range %s to %s",
			what, t.UTC().Format(time.RFC3339Nano),
			minInstant.Format(time.RFC3339), maxInstant.Format(time.RFC3339))
	}
	return nil
}

// validateEvent rejects events the store cannot represent. A zero
// timestamp is rejected too: zero means unbounded in EventFilter.
func validateEvent(e model.Event) error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	if e.Duration < 0 {
		return fmt.Errorf("%w: negative duration %s", ErrInvalidEvent, e.Duration)
	}
	if err := checkInstant("timestamp", e.Timestamp); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := checkInstant("end", e.End()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return nil
}

// unixNanoBound converts a filter bound, clamping instants outside the
// storable range to the nearest representable one.
func unixNanoBound(t time.Time) int64 {
	switch {
	case t.Before(minInstant):
		return math.MinInt64
	case t.After(maxInstant):
		return math.MaxInt64
	}
	return t.UnixNano()
}

// GetEvents returns the bucket's events whose span intersects the filter's
// [Start, End], newest first (ties broken by descending id), truncated to
// Limit. Returns an empty slice (not nil) if nothing matches.
func (tx *Tx) GetEvents(bucketID string, f EventFilter) (_ []model.Event, err error) {
	done, err := tx.begin("get_events")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(bucketID)
	if err != nil {
		return nil, err
	}

	where, args := rangeClause(key, f.Start, f.End)
	query := `SELECT id, starttime, endtime, data FROM events WHERE ` + where +
		` ORDER BY starttime DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := tx.s.db.QueryContext(tx.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// GetEventCount counts the events GetEvents would return without a limit.
func (tx *Tx) GetEventCount(bucketID string, start, end time.Time) (_ int64, err error) {
	done, err := tx.begin("get_event_count")
	if err != nil {
		return 0, err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(bucketID)
	if err != nil {
		return 0, err
	}

	where, args := rangeClause(key, start, end)
	var count int64
	if err := tx.s.db.QueryRowContext(tx.ctx,
		`SELECT COUNT(*) FROM events WHERE `+where, args...,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// DeleteEventsByID removes the listed events. Ids that do not exist in the
// bucket are ignored. Returns ErrNoSuchBucket if the bucket is absent.
func (tx *Tx) DeleteEventsByID(bucketID string, ids []int64) (err error) {
	done, err := tx.begin("delete_events")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(bucketID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	sqlTx, err := tx.s.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return fmt.Errorf("delete events: begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	for _, id := range ids {
		if _, err := sqlTx.ExecContext(tx.ctx,
			`DELETE FROM events WHERE bucket_key = ? AND id = ?`, key, id,
		); err != nil {
			return fmt.Errorf("delete event %d: %w", id, err)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("delete events: commit: %w", err)
	}

	tx.s.newest.forgetIfAny(key, ids)
	return nil
}

// latestEvent returns the newest event of the bucket, or nil if empty.
// Served from the newest-event index; falls back to one indexed query.
func (tx *Tx) latestEvent(key int64) (*model.Event, error) {
	if e, ok := tx.s.newest.get(key); ok {
		return e, nil
	}

	rows, err := tx.s.db.QueryContext(tx.ctx, `
		SELECT id, starttime, endtime, data
		FROM events
		WHERE bucket_key = ?
		ORDER BY starttime DESC, id DESC
		LIMIT 1
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query latest event: %w", err)
	}
	defer rows.Close()

	var latest *model.Event
	if rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		latest = &e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest event: %w", err)
	}

	tx.s.newest.set(key, latest)
	return latest, nil
}

// rangeClause builds the WHERE clause for an intersection query.
// An event [starttime, endtime] intersects [start, end] when
// endtime >= start AND starttime <= end. Both spans are closed rather
// than half-open, so an event ending exactly at start is included.
func rangeClause(key int64, start, end time.Time) (string, []any) {
	conds := []string{"bucket_key = ?"}
	args := []any{key}
	if !start.IsZero() {
		conds = append(conds, "endtime >= ?")
		args = append(args, unixNanoBound(start))
	}
	if !end.IsZero() {
		conds = append(conds, "starttime <= ?")
		args = append(args, unixNanoBound(end))
	}
	return strings.Join(conds, " AND "), args
}

func scanEvent(row rowScanner) (model.Event, error) {
	var id, start, end int64
	var dataJSON string
	if err := row.Scan(&id, &start, &end, &dataJSON); err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}

	data, err := unmarshalData(dataJSON)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d: %w", id, err)
	}

	return model.Event{
		ID:        id,
		Timestamp: time.Unix(0, start).UTC(),
		Duration:  time.Duration(end - start),
		Data:      data,
	}, nil
}

// marshalData encodes event data for storage. Nil data is stored as {}.
func marshalData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(b), nil
}

func unmarshalData(s string) (map[string]any, error) {
	data := map[string]any{}
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return data, nil
}

// InsertEvents stores events in its own exclusive section.
// See Tx.InsertEvents.
func (s *Store) InsertEvents(ctx context.Context, bucketID string, events []model.Event) ([]model.Event, error) {
	var out []model.Event
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.InsertEvents(bucketID, events)
		return err
	})
	return out, err
}

// GetEvents runs a range query in its own exclusive section.
// See Tx.GetEvents.
func (s *Store) GetEvents(ctx context.Context, bucketID string, f EventFilter) ([]model.Event, error) {
	var out []model.Event
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.GetEvents(bucketID, f)
		return err
	})
	return out, err
}

// GetEventCount counts events in its own exclusive section.
// See Tx.GetEventCount.
func (s *Store) GetEventCount(ctx context.Context, bucketID string, start, end time.Time) (int64, error) {
	var out int64
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.GetEventCount(bucketID, start, end)
		return err
	})
	return out, err
}

// DeleteEventsByID removes events in its own exclusive section.
// See Tx.DeleteEventsByID.
func (s *Store) DeleteEventsByID(ctx context.Context, bucketID string, ids []int64) error {
	return s.Do(ctx, func(tx *Tx) error {
		return tx.DeleteEventsByID(bucketID, ids)
	})
}
