package toolchain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/ide"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []sse.Event
}

func (l *eventLog) Publish(e sse.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

type failingStore struct{}

func (failingStore) Append(context.Context, history.Record) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingStore) Recent(context.Context, string, int) ([]history.Record, error) {
	return nil, errors.New("disk full")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setup(t *testing.T) (*Service, *testutil.Recorder, *eventLog, *history.DB) {
	t.Helper()
	rec := testutil.NewRecorder()
	db := testutil.TestHistory(t)
	events := &eventLog{}
	svc := NewService(testutil.TestExecutor(t, rec),
		WithHistory(db),
		WithPublisher(events),
		WithLogger(quiet()))
	return svc, rec, events, db
}

func TestCommands(t *testing.T) {
	svc, _, _, _ := setup(t)
	if svc.Name() != "sim" {
		t.Errorf("Name = %q", svc.Name())
	}
	cmds := svc.Commands()
	if len(cmds) != 2 || cmds[0].Name != "build" || cmds[1].Name != "lint" {
		t.Errorf("Commands = %+v", cmds)
	}
	if _, err := svc.Command("flash"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRun_Success(t *testing.T) {
	svc, rec, events, _ := setup(t)
	ctx := context.Background()

	r, err := svc.Run(ctx, "build", true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.ID == 0 || r.Outcome != history.OutcomeOK {
		t.Errorf("record = %+v", r)
	}
	if filepath.Base(r.Artifact) != "negSimple.v" || r.ArtifactChecksum == "" {
		t.Errorf("artifact = %q checksum = %q", r.Artifact, r.ArtifactChecksum)
	}
	if len(r.Args) != 2 || r.Args[0] != "make" || r.Args[1] != r.Artifact {
		t.Errorf("args = %v", r.Args)
	}

	started := rec.Started()
	if len(started) != 1 || !started[0].Interactive || started[0].Dir != r.Dir {
		t.Errorf("started = %+v", started)
	}

	got := events.types()
	if len(got) != 2 || got[0] != sse.EventCommandStarted || got[1] != sse.EventCommandCompleted {
		t.Errorf("events = %v", got)
	}

	recs, err := svc.History(ctx, "build", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != r.ID {
		t.Errorf("history = %+v", recs)
	}
}

func TestRun_Failure(t *testing.T) {
	svc, rec, events, _ := setup(t)
	rec.StartErr = errors.New("make: not found")

	r, err := svc.Run(context.Background(), "build", false)
	if !errors.Is(err, ide.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	if r == nil || r.Outcome != history.OutcomeError || r.Error == "" {
		t.Fatalf("record = %+v", r)
	}
	if len(rec.Errors()) != 1 {
		t.Errorf("reported errors = %d, want 1", len(rec.Errors()))
	}

	got := events.types()
	if len(got) != 2 || got[1] != sse.EventCommandFailed {
		t.Errorf("events = %v", got)
	}

	recs, _ := svc.History(context.Background(), "", 0)
	if len(recs) != 1 || recs[0].Outcome != history.OutcomeError {
		t.Errorf("history = %+v", recs)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	svc, rec, events, _ := setup(t)
	if _, err := svc.Run(context.Background(), "flash", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(rec.Files()) != 0 || len(events.types()) != 0 {
		t.Error("unknown command must have no side effects")
	}
}

func TestRun_Duration(t *testing.T) {
	rec := testutil.NewRecorder()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}
	svc := NewService(testutil.TestExecutor(t, rec), WithClock(clock), WithLogger(quiet()))

	r, err := svc.Run(context.Background(), "lint", false)
	if err != nil {
		t.Fatal(err)
	}
	if !r.StartedAt.Equal(base) || r.Duration != 250*time.Millisecond {
		t.Errorf("started = %v duration = %v", r.StartedAt, r.Duration)
	}
	if r.Artifact != "" {
		t.Errorf("lint must not produce an artifact, got %q", r.Artifact)
	}
}

func TestRun_HistoryFailureDoesNotFailRun(t *testing.T) {
	rec := testutil.NewRecorder()
	svc := NewService(testutil.TestExecutor(t, rec), WithHistory(failingStore{}), WithLogger(quiet()))

	r, err := svc.Run(context.Background(), "build", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.ID != 0 {
		t.Errorf("id = %d, want 0", r.ID)
	}
	if _, err := svc.History(context.Background(), "", 10); err == nil {
		t.Error("expected history error")
	}
}

func TestHistory_NoStore(t *testing.T) {
	svc := NewService(testutil.TestExecutor(t, testutil.NewRecorder()))
	recs, err := svc.History(context.Background(), "", 10)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Errorf("History = %v, %v", recs, err)
	}
}

func TestRun_Serialized(t *testing.T) {
	svc, rec, _, db := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Run(ctx, "build", false); err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(rec.Started()); n != 8 {
		t.Errorf("started = %d, want 8", n)
	}
	recs, err := db.Recent(ctx, "build", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 8 {
		t.Errorf("history = %d, want 8", len(recs))
	}
}
