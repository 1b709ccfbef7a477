package history

import (
	"testing"

	"context"
	"errors"
	"path/filepath"
	"reflect"
	"time"
)

func newTestDB(t *testing.T, f string) *DB {
	t.Helper()

	db, err := Open(context.Background(), f)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(started time.Time, failed ...string) *Run {
	r := &Run{
		Started: started,
		Command: "compile -products medcoupling",
		Results: []*Result{{
			Product:  "zlib",
			State:    "OK",
			Duration: 1500 * time.Millisecond,
		}},
	}
	for _, name := range failed {
		r.Results = append(r.Results, &Result{
			Product: name,
			State:   "KO",
			Label:   "DEPENDENCIES",
			Missing: []string{"zlib", "hdf5"},
		})
	}
	r.Total = len(r.Results)
	r.Failed = len(failed)
	return r
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, "")

	started := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	run := testRun(started, "medcoupling")
	id, err := db.Record(ctx, run)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if run.ID != id {
		t.Errorf("got run id %d, want %d", run.ID, id)
	}

	got, err := db.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, run) {
		t.Errorf("got %+v, want %+v", got, run)
	}
	if !reflect.DeepEqual(got.Results, run.Results) {
		t.Errorf("got results %+v, want %+v", got.Results, run.Results)
	}

	if _, err := db.Get(ctx, id+1); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, want ErrRunNotFound", err)
	}
}

func TestLast(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, "")

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		var failed []string
		if i%2 == 1 {
			failed = []string{"gcc"}
		}
		run := testRun(start.Add(time.Duration(i)*time.Hour), failed...)
		if _, err := db.Record(ctx, run); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	runs, err := db.Last(ctx, 3)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	var starts []time.Time
	var fails []int
	for _, r := range runs {
		starts = append(starts, r.Started)
		fails = append(fails, r.Failed)
	}
	wantStarts := []time.Time{
		start.Add(3 * time.Hour),
		start.Add(2 * time.Hour),
		start.Add(1 * time.Hour),
	}
	if !reflect.DeepEqual(starts, wantStarts) {
		t.Errorf("got starts %v, want %v", starts, wantStarts)
	}
	if want := []int{1, 0, 1}; !reflect.DeepEqual(fails, want) {
		t.Errorf("got failures %v, want %v", fails, want)
	}
	if got := len(runs[0].Results); got != 2 {
		t.Errorf("got %d results in the latest run, want 2", got)
	}
}

func TestOpen_file(t *testing.T) {
	ctx := context.Background()
	f := filepath.Join(t.TempDir(), ".pbuild", "history.db")

	db, err := Open(ctx, f)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Record(ctx, testRun(time.Unix(1700000000, 0).UTC())); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db = newTestDB(t, f)
	runs, err := db.Last(ctx, 10)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs after reopening, want 1", len(runs))
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err = db.Last(ctx, 10)
	if err != nil {
		t.Fatalf("last after reset: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs after reset, want none", len(runs))
	}
}
