package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"carharvest-engine/internal/harvest"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if v != 1 {
		t.Errorf("user_version = %d, want 1", v)
	}
}

func TestSaveAndListRuns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := Run{
		BaseURL:    "https://www.tc-v.com/used_car/mazda/rx-7/",
		Mark:       "mazda",
		Model:      "rx-7",
		MaxPages:   20,
		Records:    57,
		Status:     RunStatusOK,
		StartedAt:  started,
		FinishedAt: started.Add(40 * time.Second),
		Log: []harvest.Entry{
			{Level: harvest.LevelInfo, Stage: harvest.StageSystem, Message: "harvest finished. pages: 20, listings: 57"},
		},
	}

	id, err := SaveRun(ctx, db, r)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == 0 {
		t.Fatal("want nonzero id")
	}

	runs, err := ListRuns(ctx, db, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != id || got.Mark != "mazda" || got.Model != "rx-7" {
		t.Errorf("got %+v", got)
	}
	if got.Records != 57 || got.Status != RunStatusOK || got.MaxPages != 20 {
		t.Errorf("summary fields round-trip: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if len(got.Log) != 1 || got.Log[0].Stage != harvest.StageSystem {
		t.Errorf("log round-trip: %+v", got.Log)
	}
}

func TestListRunsNewestFirstAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := SaveRun(ctx, db, Run{
			BaseURL:    "https://www.tc-v.com/used_car/toyota/supra/",
			Mark:       "toyota",
			Model:      "supra",
			MaxPages:   5,
			Records:    i,
			Status:     RunStatusOK,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	runs, err := ListRuns(ctx, db, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Errorf("runs not newest-first: %v then %v", runs[i-1].StartedAt, runs[i].StartedAt)
		}
	}
	if runs[0].Records != 4 {
		t.Errorf("newest run records = %d, want 4", runs[0].Records)
	}

	// out-of-range limits fall back to the default
	runs, err = ListRuns(ctx, db, -1)
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if len(runs) != 5 {
		t.Errorf("got %d runs, want 5", len(runs))
	}
}

func TestCleanupOldRuns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, -4, 0)
	recent := time.Now().UTC().Add(-time.Hour)
	for _, ts := range []time.Time{old, recent} {
		if _, err := SaveRun(ctx, db, Run{
			BaseURL:    "https://www.tc-v.com/used_car/nissan/skyline/",
			Mark:       "nissan",
			Model:      "skyline",
			MaxPages:   1,
			Status:     RunStatusEmpty,
			StartedAt:  ts,
			FinishedAt: ts,
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	n, err := CleanupOldRuns(db)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	runs, err := ListRuns(ctx, db, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || !runs[0].StartedAt.Equal(recent.Truncate(time.Second)) {
		t.Errorf("survivor mismatch: %+v", runs)
	}
}
