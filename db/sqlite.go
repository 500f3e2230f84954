package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// UniqueConstrain is the sqlite extended error code for a violated PRIMARY KEY constraint
	UniqueConstrain = 1555

	defaultJournalSizeLimit = 6144000
	defaultBusyTimeoutMs    = 5000
)

var (
	// ErrNotFound is returned when a query matches no rows
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when inserting a row whose key is already stored
	ErrAlreadyExists = errors.New("already exists")
)

type openOptions struct {
	journalSizeLimit int
	busyTimeoutMs    int
	maxOpenConns     int
}

// Option tunes how Open prepares the sqlite connection
type Option func(*openOptions)

// WithBusyTimeout sets how long a writer waits on a locked database, in milliseconds
func WithBusyTimeout(ms int) Option {
	return func(o *openOptions) { o.busyTimeoutMs = ms }
}

// WithMaxOpenConns limits the size of the connection pool. Zero means unlimited
func WithMaxOpenConns(n int) Option {
	return func(o *openOptions) { o.maxOpenConns = n }
}

// Open opens the sqlite file at dbPath with WAL journaling and foreign keys enforced
func Open(dbPath string, opts ...Option) (*sql.DB, error) {
	o := openOptions{
		journalSizeLimit: defaultJournalSizeLimit,
		busyTimeoutMs:    defaultBusyTimeoutMs,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.maxOpenConns)

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA journal_size_limit = %d;", o.journalSizeLimit),
		fmt.Sprintf("PRAGMA busy_timeout = %d;", o.busyTimeoutMs),
	}
	if _, err := db.Exec(strings.Join(pragmas, "\n")); err != nil {
		return nil, errors.Join(fmt.Errorf("error configuring %s: %w", dbPath, err), db.Close())
	}
	return db, nil
}

// ReturnErrNotFound maps sql.ErrNoRows to ErrNotFound
func ReturnErrNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ReturnErrAlreadyExists maps a unique constraint violation to ErrAlreadyExists
func ReturnErrAlreadyExists(err error) error {
	if sqliteErr, ok := SQLiteErr(err); ok && int(sqliteErr.ExtendedCode) == UniqueConstrain {
		return ErrAlreadyExists
	}
	return err
}
