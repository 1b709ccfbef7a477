package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one product in a run.
type Result struct {
	Product  string
	State    string
	Label    string
	Missing  []string
	Duration time.Duration
}

// Run is one compile invocation.
type Run struct {
	ID      int64
	Started time.Time
	Command string
	Total   int
	Failed  int

	Results []*Result
}

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

type runStore struct {
	db *DB
}

func (s *runStore) create(ctx context.Context) error {
	_, err := s.db.X(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id integer PRIMARY KEY AUTOINCREMENT,
			started integer NOT NULL,
			command text NOT NULL,
			total integer NOT NULL,
			failed integer NOT NULL)`,
	)
	return err
}

func (s *runStore) destroy(ctx context.Context) error {
	_, err := s.db.X(ctx, `drop table if exists runs`)
	return err
}

func (s *runStore) insert(ctx context.Context, r *Run) (int64, error) {
	res, err := s.db.X(
		ctx, `INSERT INTO runs (started, command, total, failed) VALUES (?, ?, ?, ?)`,
		r.Started.UnixMilli(), r.Command, r.Total, r.Failed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	r := new(Run)
	var started int64
	if err := row.Scan(&r.ID, &started, &r.Command, &r.Total, &r.Failed); err != nil {
		return nil, err
	}
	r.Started = time.UnixMilli(started).UTC()
	return r, nil
}

func (s *runStore) get(ctx context.Context, id int64) (*Run, error) {
	r, err := scanRun(s.db.Q1(
		ctx, `SELECT id, started, command, total, failed FROM runs WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return r, nil
}

// last returns the n latest runs, latest first.
func (s *runStore) last(ctx context.Context, n int) ([]*Run, error) {
	rows, err := s.db.Q(
		ctx, `SELECT id, started, command, total, failed FROM runs
			ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type resultStore struct {
	db *DB
}

func (s *resultStore) create(ctx context.Context) error {
	_, err := s.db.X(ctx, `
		CREATE TABLE IF NOT EXISTS results (
			run integer NOT NULL,
			seq integer NOT NULL,
			product text NOT NULL,
			state text NOT NULL,
			label text NOT NULL,
			missing text NOT NULL,
			duration integer NOT NULL,
			PRIMARY KEY (run, seq))`,
	)
	return err
}

func (s *resultStore) destroy(ctx context.Context) error {
	_, err := s.db.X(ctx, `drop table if exists results`)
	return err
}

func (s *resultStore) insert(ctx context.Context, run int64, seq int, r *Result) error {
	_, err := s.db.X(
		ctx, `INSERT INTO results
			(run, seq, product, state, label, missing, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run, seq, r.Product, r.State, r.Label,
		strings.Join(r.Missing, ","), r.Duration.Milliseconds(),
	)
	return err
}

func (s *resultStore) list(ctx context.Context, run int64) ([]*Result, error) {
	rows, err := s.db.Q(
		ctx, `SELECT product, state, label, missing, duration FROM results
			WHERE run = ? ORDER BY seq`, run,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		r := new(Result)
		var missing string
		var ms int64
		if err := rows.Scan(&r.Product, &r.State, &r.Label, &missing, &ms); err != nil {
			return nil, err
		}
		if missing != "" {
			r.Missing = strings.Split(missing, ",")
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// Record saves the run and its results, and returns the id of the run.
func (d *DB) Record(ctx context.Context, r *Run) (int64, error) {
	id, err := d.runs.insert(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	for i, res := range r.Results {
		if err := d.results.insert(ctx, id, i, res); err != nil {
			return 0, fmt.Errorf("insert result of %q: %w", res.Product, err)
		}
	}
	r.ID = id
	return id, nil
}

// Get returns the run with the given id, with its results.
func (d *DB) Get(ctx context.Context, id int64) (*Run, error) {
	r, err := d.runs.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Results, err = d.results.list(ctx, id); err != nil {
		return nil, fmt.Errorf("list results of run %d: %w", id, err)
	}
	return r, nil
}

// Last returns the n latest runs with their results, latest first.
func (d *DB) Last(ctx context.Context, n int) ([]*Run, error) {
	runs, err := d.runs.last(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for _, r := range runs {
		if r.Results, err = d.results.list(ctx, r.ID); err != nil {
			return nil, fmt.Errorf("list results of run %d: %w", r.ID, err)
		}
	}
	return runs, nil
}
