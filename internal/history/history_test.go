package history

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-history-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM executions`).Scan(&count); err != nil {
		t.Fatalf("executions table missing: %v", err)
	}
}

func TestPing(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	db.Close()
	if err := db.Ping(context.Background()); err == nil {
		t.Error("expected error after Close")
	}
}

func TestAppendAndRecent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	id, err := db.Append(ctx, Record{
		Command:          "prog",
		Outcome:          OutcomeOK,
		Dir:              "z",
		Args:             []string{"make", "z/test.v"},
		Artifact:         "z/test.v",
		ArtifactChecksum: "abc",
		StartedAt:        started,
		Duration:         1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d", id)
	}

	recs, err := db.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Command != "prog" || r.Outcome != OutcomeOK || r.Artifact != "z/test.v" {
		t.Errorf("record = %+v", r)
	}
	if !reflect.DeepEqual(r.Args, []string{"make", "z/test.v"}) {
		t.Errorf("args = %v", r.Args)
	}
	if r.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", r.Duration)
	}
	if !r.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", r.StartedAt, started)
	}
}

func TestRecentFilterAndOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, cmd := range []string{"build", "prog", "build"} {
		if _, err := db.Append(ctx, Record{Command: cmd, Outcome: OutcomeOK, StartedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = db.Append(ctx, Record{Command: "build", Outcome: OutcomeError, Error: "boom", StartedAt: time.Now()})

	recs, err := db.Recent(ctx, "build", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].Outcome != OutcomeError || recs[0].Error != "boom" {
		t.Errorf("newest = %+v", recs[0])
	}
	if recs[0].Args == nil || len(recs[0].Args) != 0 {
		t.Errorf("args = %#v, want empty", recs[0].Args)
	}

	recs, _ = db.Recent(ctx, "", 2)
	if len(recs) != 2 {
		t.Errorf("limit not applied: %d", len(recs))
	}
}
