package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

const (
	// DriverSQLite is the database/sql name of modernc.org/sqlite.
	DriverSQLite = "sqlite"
	// DriverPGX is the database/sql name of the pgx stdlib driver.
	DriverPGX = "pgx"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateDose is returned when a dose for the same occurrence exists.
	ErrDuplicateDose = errors.New("dose already recorded for this occurrence")

	// errDBRequired is returned when New receives a nil handle.
	errDBRequired = errors.New("db is nil")
	// errUnsupportedDriver is returned for drivers other than sqlite and pgx.
	errUnsupportedDriver = errors.New("unsupported driver")
)

// Store is the database/sql backed schedule store, dose ledger and catalog.
type Store struct {
	// db is the shared connection pool.
	db *sql.DB
	// driver selects placeholder syntax.
	driver string

	// mu protects subscribers.
	mu sync.Mutex
	// subscribers receive a signal after every schedule change.
	subscribers map[chan struct{}]struct{}
}

// Open connects to the database, applies migrations and returns a Store.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPGX {
		return nil, fmt.Errorf("%w: %q", errUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	store, err := New(db, driver)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	if err = store.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return store, nil
}

// New returns a Store bound to an existing database handle.
func New(db *sql.DB, driver string) (*Store, error) {
	if db == nil {
		return nil, errDBRequired
	}

	return &Store{
		db:          db,
		driver:      driver,
		subscribers: make(map[chan struct{}]struct{}),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPGX {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}

		n++

		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// exec runs a statement with rebinding.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

// query runs a row-returning statement with rebinding.
func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// queryRow runs a single-row statement with rebinding.
func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// boolToInt maps booleans to the INTEGER column representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
