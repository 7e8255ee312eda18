package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tempo/internal/model"
)

// CreateBucket persists a new, empty bucket.
// Returns ErrBucketAlreadyExists if a live bucket has the same id.
//
// The returned bucket carries the store-assigned Key. Created is set to
// the store clock when b.Created is zero.
func (tx *Tx) CreateBucket(b model.Bucket) (_ model.Bucket, err error) {
	done, err := tx.begin("create_bucket")
	if err != nil {
		return model.Bucket{}, err
	}
	defer func() { done(err) }()

	b, err = tx.prepareBucket(b)
	if err != nil {
		return model.Bucket{}, fmt.Errorf("create bucket: %w", err)
	}
	b.Key, err = insertBucket(tx.ctx, tx.s.db, b)
	if err != nil {
		return model.Bucket{}, err
	}

	// A new bucket is known to be empty.
	tx.s.newest.set(b.Key, nil)

	return b, nil
}

// prepareBucket defaults Created to the store clock and validates b.
func (tx *Tx) prepareBucket(b model.Bucket) (model.Bucket, error) {
	if b.ID == "" {
		return model.Bucket{}, fmt.Errorf("empty id")
	}
	if b.Created.IsZero() {
		b.Created = tx.s.now()
	}
	b.Created = b.Created.UTC()
	if err := checkInstant("created", b.Created); err != nil {
		return model.Bucket{}, fmt.Errorf("bucket %q: %w", b.ID, err)
	}
	return b, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertBucket writes the bucket row and returns its key.
// Returns ErrBucketAlreadyExists if the id is taken.
func insertBucket(ctx context.Context, ex execer, b model.Bucket) (int64, error) {
	result, err := ex.ExecContext(ctx, `
		INSERT INTO buckets (id, type, client, hostname, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, b.ID, b.Type, b.Client, b.Hostname, b.Created.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("create bucket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("create bucket: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, bucketAlreadyExists(b.ID)
	}

	key, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create bucket: last insert id: %w", err)
	}
	return key, nil
}

// GetBucket retrieves a bucket by id.
// Returns ErrNoSuchBucket if absent.
func (tx *Tx) GetBucket(id string) (_ model.Bucket, err error) {
	done, err := tx.begin("get_bucket")
	if err != nil {
		return model.Bucket{}, err
	}
	defer func() { done(err) }()

	row := tx.s.db.QueryRowContext(tx.ctx, `
		SELECT key, id, type, client, hostname, created
		FROM buckets
		WHERE id = ?
	`, id)

	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bucket{}, noSuchBucket(id)
	}
	if err != nil {
		return model.Bucket{}, fmt.Errorf("get bucket: %w", err)
	}
	return b, nil
}

// GetBuckets returns all live buckets keyed by id.
// Returns an empty map (not nil) if there are none.
func (tx *Tx) GetBuckets() (_ map[string]model.Bucket, err error) {
	done, err := tx.begin("get_buckets")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	rows, err := tx.s.db.QueryContext(tx.ctx, `
		SELECT key, id, type, client, hostname, created
		FROM buckets
		ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]model.Bucket)
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}

	return buckets, nil
}

// DeleteBucket removes a bucket and all of its events permanently.
// Returns ErrNoSuchBucket if absent.
func (tx *Tx) DeleteBucket(id string) (err error) {
	done, err := tx.begin("delete_bucket")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	key, err := tx.bucketKey(id)
	if err != nil {
		return err
	}

	sqlTx, err := tx.s.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return fmt.Errorf("delete bucket: begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	// ON DELETE CASCADE covers this when foreign keys are on; deleting
	// explicitly keeps the contract independent of the pragma.
	if _, err := sqlTx.ExecContext(tx.ctx, `DELETE FROM events WHERE bucket_key = ?`, key); err != nil {
		return fmt.Errorf("delete bucket: delete events: %w", err)
	}
	if _, err := sqlTx.ExecContext(tx.ctx, `DELETE FROM buckets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("delete bucket: commit: %w", err)
	}

	tx.s.newest.forget(key)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBucket(row rowScanner) (model.Bucket, error) {
	var b model.Bucket
	var created int64
	if err := row.Scan(&b.Key, &b.ID, &b.Type, &b.Client, &b.Hostname, &created); err != nil {
		return model.Bucket{}, err
	}
	b.Created = time.Unix(0, created).UTC()
	return b, nil
}

// CreateBucket persists a new bucket in its own exclusive section.
// See Tx.CreateBucket.
func (s *Store) CreateBucket(ctx context.Context, b model.Bucket) (model.Bucket, error) {
	var out model.Bucket
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CreateBucket(b)
		return err
	})
	return out, err
}

// GetBucket retrieves a bucket in its own exclusive section.
// See Tx.GetBucket.
func (s *Store) GetBucket(ctx context.Context, id string) (model.Bucket, error) {
	var out model.Bucket
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.GetBucket(id)
		return err
	})
	return out, err
}

// GetBuckets returns all buckets in its own exclusive section.
// See Tx.GetBuckets.
func (s *Store) GetBuckets(ctx context.Context) (map[string]model.Bucket, error) {
	var out map[string]model.Bucket
	err := s.Do(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.GetBuckets()
		return err
	})
	return out, err
}

// DeleteBucket removes a bucket in its own exclusive section.
// See Tx.DeleteBucket.
func (s *Store) DeleteBucket(ctx context.Context, id string) error {
	return s.Do(ctx, func(tx *Tx) error {
		return tx.DeleteBucket(id)
	})
}
