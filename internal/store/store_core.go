package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"trimreview/internal/config"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeSubmitted ChangeKind = "submitted"
	ChangeReviewed  ChangeKind = "reviewed"
	ChangeStarted   ChangeKind = "started"
	ChangeOutcome   ChangeKind = "outcome"
)

// Change describes a committed mutation.
type Change struct {
	Kind        ChangeKind
	Instruction instruction.Instruction
	// Outcome is set only for ChangeOutcome.
	Outcome *instruction.TaskHistoryEntry
}

// Store manages instruction persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time

	// writeMu serializes read-modify-write transactions within this process.
	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(Change)
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "store")
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timestampLayout         = "2006-01-02T15:04:05.000000Z07:00"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func newBusyBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = busyRetryInitialBackoff
	policy.MaxInterval = busyRetryMaxBackoff
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	return backoff.WithMaxRetries(policy, busyRetryAttempts-1)
}

// retryOnBusy re-runs op while SQLite reports the database as locked. Other
// errors are returned immediately.
func retryOnBusy(ctx context.Context, op func() error) error {
	ctx = ensureContext(ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isSQLiteBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(newBusyBackOff(), ctx))
}

// Open initializes or connects to the instruction database.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OnChange registers fn to be called after every committed mutation. Calls
// happen synchronously on the mutating goroutine, after the transaction commits.
func (s *Store) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Store) emit(change Change) {
	s.listenersMu.RLock()
	listeners := append([]func(Change){}, s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(change)
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(timestampLayout, raw)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
