package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Tx is a handle to the store valid for the duration of one exclusive
// section. It exposes every store operation without further locking.
//
// A Tx must not be retained after the function passed to Do returns;
// operations on a finished Tx fail with ErrStoreUnavailable.
type Tx struct {
	s    *Store
	ctx  context.Context
	done bool
}

// Context returns the context the section was entered with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// begin checks the Tx is still inside its section and starts operation
// tracking. The returned func must be called with the operation's error.
func (tx *Tx) begin(op string) (func(error), error) {
	if tx.done {
		return nil, unavailableError("transaction used outside its exclusive section")
	}
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		tx.s.metrics.observe(op, elapsed, err)
		if err != nil {
			tx.s.logger.Debug("store operation failed", "op", op, "duration", elapsed, "error", err)
			return
		}
		tx.s.logger.Debug("store operation", "op", op, "duration", elapsed)
	}, nil
}

// bucketKey resolves a bucket id to its internal key.
func (tx *Tx) bucketKey(id string) (int64, error) {
	var key int64
	err := tx.s.db.QueryRowContext(tx.ctx, `SELECT key FROM buckets WHERE id = ?`, id).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, noSuchBucket(id)
	}
	if err != nil {
		return 0, err
	}
	return key, nil
}
