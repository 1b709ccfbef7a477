// Package history keeps a sqlite record of compile runs and of the result
// of every product in them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type store interface {
	create(ctx context.Context) error
	destroy(ctx context.Context) error
}

func createAll(ctx context.Context, stores []store) error {
	for _, s := range stores {
		if err := s.create(ctx); err != nil {
			return err
		}
	}
	return nil
}

func destroyAll(ctx context.Context, stores []store) error {
	for _, s := range stores {
		if err := s.destroy(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DB is the history database.
type DB struct {
	db *sql.DB

	runs    *runStore
	results *resultStore
}

// Open opens the history database in file f, creating the file and its
// tables when needed. An empty f opens an in-memory database.
func Open(ctx context.Context, f string) (*DB, error) {
	if f == "" {
		f = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
		return nil, fmt.Errorf("make history dir: %w", err)
	}

	const driver = "sqlite"
	db, err := sql.Open(driver, f)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a new database.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	d.runs = &runStore{db: d}
	d.results = &resultStore{db: d}
	if err := createAll(ctx, d.stores()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return d, nil
}

func (d *DB) stores() []store {
	return []store{d.runs, d.results}
}

// Reset drops and recreates all tables.
func (d *DB) Reset(ctx context.Context) error {
	if err := destroyAll(ctx, d.stores()); err != nil {
		return err
	}
	return createAll(ctx, d.stores())
}

func (d *DB) Close() error {
	return d.db.Close()
}

// X is a shortcut for ExecContext.
func (d *DB) X(ctx context.Context, q string, args ...any) (
	sql.Result, error,
) {
	return d.db.ExecContext(ctx, q, args...)
}

// Q is a shortcut for QueryContext.
func (d *DB) Q(ctx context.Context, q string, args ...any) (
	*sql.Rows, error,
) {
	return d.db.QueryContext(ctx, q, args...)
}

// Q1 is a shortcut for QueryRowContext.
func (d *DB) Q1(ctx context.Context, q string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, q, args...)
}
