package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/tempo/internal/model"
)

// Export returns the named buckets with all of their events, newest
// first. With no ids, every live bucket is exported.
// Returns ErrNoSuchBucket if a named bucket is absent.
func (tx *Tx) Export(ids ...string) (model.BucketsExport, error) {
	doc := model.BucketsExport{Buckets: make(map[string]model.ExportBucket)}

	var buckets []model.Bucket
	if len(ids) == 0 {
		all, err := tx.GetBuckets()
		if err != nil {
			return model.BucketsExport{}, err
		}
		for _, id := range model.SortedKeys(all) {
			buckets = append(buckets, all[id])
		}
	} else {
		for _, id := range ids {
			b, err := tx.GetBucket(id)
			if err != nil {
				return model.BucketsExport{}, err
			}
			buckets = append(buckets, b)
		}
	}

	for _, b := range buckets {
		events, err := tx.GetEvents(b.ID, EventFilter{})
		if err != nil {
			return model.BucketsExport{}, fmt.Errorf("export %s: %w", b.ID, err)
		}
		doc.Buckets[b.ID] = model.ExportBucket{Bucket: b, Events: events}
	}
	return doc, nil
}

// Import creates every bucket in doc and inserts its events.
//
// Bucket metadata (including Created) is kept. Events are inserted
// oldest first and receive fresh ids, so ids follow timestamp order.
// Everything is validated up front and written in one SQLite
// transaction: on any error, including ErrBucketAlreadyExists, nothing
// is written.
func (tx *Tx) Import(doc model.BucketsExport) (err error) {
	done, err := tx.begin("import")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	type pending struct {
		bucket  model.Bucket
		events  []model.Event
		encoded []string
	}

	ids := model.SortedKeys(doc.Buckets)
	plan := make([]pending, 0, len(ids))
	for _, id := range ids {
		eb := doc.Buckets[id]
		if eb.ID != "" && eb.ID != id {
			return fmt.Errorf("import: bucket %q listed under key %q", eb.ID, id)
		}
		if _, err := tx.bucketKey(id); err == nil {
			return bucketAlreadyExists(id)
		} else if !IsNoSuchBucket(err) {
			return fmt.Errorf("import: %w", err)
		}

		eb.ID = id
		b, err := tx.prepareBucket(eb.Bucket)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		events := slices.Clone(eb.Events)
		slices.SortStableFunc(events, func(a, b model.Event) int {
			if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		encoded, err := encodeEvents(events)
		if err != nil {
			return fmt.Errorf("import %s: %w", id, err)
		}
		plan = append(plan, pending{bucket: b, events: events, encoded: encoded})
	}

	sqlTx, err := tx.s.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return fmt.Errorf("import: begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	stored := make(map[int64][]model.Event, len(plan))
	for _, p := range plan {
		key, err := insertBucket(tx.ctx, sqlTx, p.bucket)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		events, err := writeEvents(tx.ctx, sqlTx, key, p.events, p.encoded)
		if err != nil {
			return fmt.Errorf("import %s: %w", p.bucket.ID, err)
		}
		stored[key] = events
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("import: commit: %w", err)
	}

	for key, events := range stored {
		tx.s.newest.set(key, nil)
		for _, e := range events {
			tx.s.newest.observe(key, e)
		}
	}
	tx.s.logger.Info("import complete", "buckets", len(ids))
	return nil
}

// Export runs Tx.Export in its own exclusive section.
func (s *Store) Export(ctx context.Context, ids ...string) (model.BucketsExport, error) {
	var out model.BucketsExport
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Export(ids...)
		return err
	})
	return out, err
}

// Import runs Tx.Import in its own exclusive section.
func (s *Store) Import(ctx context.Context, doc model.BucketsExport) error {
	return s.Do(ctx, func(tx *Tx) error {
		return tx.Import(doc)
	})
}
