package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Events indexed by (bucket_key, endtime) for range queries
const currentSchemaVersion = 1

// Store provides durable storage for buckets and events.
//
// All access goes through the exclusive section (Do). The zero value is
// not usable; call Open.
type Store struct {
	db *sql.DB

	mu       sync.Mutex // guards the exclusive section and the fields below
	closed   bool
	poisoned bool
	newest   *newestIndex

	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics
	now        func() time.Time
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger sets the logger for store diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRegisterer registers the store's Prometheus collectors with reg.
// Without it, metrics are still collected but not registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.registerer = reg
	}
}

// WithClock overrides the clock used to stamp bucket creation times.
// Used for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		newest: newNewestIndex(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	m, err := newMetrics(s.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	s.metrics = m

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and the exclusive section
	// serializes callers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the database connection. Later operations fail with
// ErrStoreUnavailable. Close waits for a running section to finish.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.db == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Do runs fn inside the store-wide exclusive section.
//
// The Tx passed to fn is only valid until fn returns. Do returns
// ErrStoreUnavailable without calling fn if the store is closed or was
// poisoned by an earlier panic. If fn panics, the store is poisoned and
// the panic is re-raised.
//
// ctx is used for values only; cancellation is not observed.
func (s *Store) Do(ctx context.Context, fn func(tx *Tx) error) (err error) {
	s.mu.Lock()

	if s.closed || s.poisoned {
		reason := "closed"
		if s.poisoned {
			reason = "poisoned by an earlier panic"
		}
		s.mu.Unlock()
		s.logger.Warn("store unavailable", "reason", reason)
		return unavailableError(reason)
	}

	tx := &Tx{s: s, ctx: context.WithoutCancel(ctx)}
	completed := false
	defer func() {
		tx.done = true
		if !completed {
			s.poisoned = true
			s.logger.Error("panic inside store section, store poisoned")
		}
		s.mu.Unlock()
	}()

	err = fn(tx)
	completed = true
	return err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the endtime index used by the lower bound of range
// queries.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_bucket_end
		ON events(bucket_key, endtime)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
