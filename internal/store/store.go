// Package store wraps the MySQL database behind the typed operations the
// query pipeline needs: table listing, column introspection, sampling, and
// SQL execution.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/chartquery/chartquery/internal/errors"
	"github.com/chartquery/chartquery/internal/logging"
)

// Config carries the explicitly injected connection settings. There is no
// process-wide mutable connection profile.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// Store provides access to the relational store. The underlying *sql.DB is a
// connection pool; individual operations borrow and return connections, so
// concurrent requests share the pool but no other state.
type Store struct {
	db      *sql.DB
	timeout time.Duration
	logger  *logging.Logger
}

// Open creates a Store from the given configuration. The connection is lazy:
// an unreachable server surfaces on first use, where callers degrade to their
// fallback values instead of failing the request.
func Open(cfg Config, logger *logging.Logger) (*Store, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Store{db: db, timeout: timeout, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "store unreachable")
	}

	return nil
}

// Execute runs a SQL statement and returns all rows as ordered column maps.
// Unlike the introspection operations, execution errors always propagate:
// a failed execution is the signal that drives the retry loop.
func (s *Store) Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "query execution failed")
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// scanRows converts a sql.Rows cursor into generic row maps, normalizing
// []byte values to strings so they JSON-encode as text.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read result columns")
	}

	var results []map[string]any

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan result row")
		}

		row := make(map[string]any, len(columns))

		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "result iteration failed")
	}

	return results, nil
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// quoteIdentifier backtick-quotes a table or column name after validating it
// against the safe identifier charset. Identifiers cannot be bound parameters
// in MySQL, so this validation is mandatory before string embedding.
func quoteIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", errors.Newf(errors.ErrTypeValidation, "unsafe identifier: %q", name)
	}

	return fmt.Sprintf("`%s`", name), nil
}
