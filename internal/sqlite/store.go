// Package sqlite wraps file-backed SQLite databases for reading the backup's
// papyrus.db and for building the scratch note.db of each extracted note.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/laczik/squidnote-unpack/pkg/types"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Store is one open SQLite database file. Writes made through Exec, ExecMany
// and CreateSchema join a pending transaction that only becomes durable on
// Commit. A Store is not safe for concurrent use.
type Store struct {
	db   *sql.DB
	tx   *sql.Tx
	path string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open connects to the database file at path, creating it if absent.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, &types.RelationalError{Op: "open", Err: fmt.Errorf("opening %s: %w", path, err)}
	}
	// One connection keeps the pending transaction and later reads on the
	// same file handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &types.RelationalError{Op: "open", Err: fmt.Errorf("connecting to %s: %w", path, err)}
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) conn() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Query runs a read query and returns every row. Column order follows the
// select list of the query.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.RelationalError{Op: "query", Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &types.RelationalError{Op: "query", Query: query, Err: err}
	}

	var out []Row
	for rows.Next() {
		row := make(Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &types.RelationalError{Op: "scan", Query: query, Err: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.RelationalError{Op: "query", Query: query, Err: err}
	}
	return out, nil
}

// begin opens the pending write transaction if none is active.
func (s *Store) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.RelationalError{Op: "begin", Err: err}
	}
	s.tx = tx
	return nil
}

// Exec applies one parametrized write.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return &types.RelationalError{Op: "exec", Query: query, Err: err}
	}
	return nil
}

// ExecMany applies query once per parameter tuple using a single prepared
// statement. An empty batch is a no-op.
func (s *Store) ExecMany(ctx context.Context, query string, batch [][]any) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.begin(ctx); err != nil {
		return err
	}

	stmt, err := s.tx.PrepareContext(ctx, query)
	if err != nil {
		return &types.RelationalError{Op: "prepare", Query: query, Err: err}
	}
	defer stmt.Close()

	for i, args := range batch {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return &types.RelationalError{Op: "exec", Query: query, Err: fmt.Errorf("row %d: %w", i, err)}
		}
	}
	return nil
}

// CreateSchema applies the DDL statements in order.
func (s *Store) CreateSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Commit makes all pending writes durable. Commit without pending writes is
// a no-op.
func (s *Store) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return &types.RelationalError{Op: "commit", Err: err}
	}
	return nil
}

// Close discards uncommitted writes and closes the database. Close is
// idempotent.
func (s *Store) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return &types.RelationalError{Op: "close", Err: err}
	}
	return nil
}
