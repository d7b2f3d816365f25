package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestFormat(t *testing.T) {
	raw, err := Format(Event{Type: EventCommandStarted, Data: map[string]string{"command": "prog"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "event: command.started\ndata: {\"command\":\"prog\"}\n\n"
	if string(raw) != want {
		t.Errorf("Format = %q, want %q", raw, want)
	}
	if _, err := Format(Event{Type: "bad", Data: func() {}}); err == nil {
		t.Error("expected encode error")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventCommandCompleted, Data: map[string]string{"command": "prog"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: command.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"command":"prog"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDesignChange_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDesignChange("z/test.dig")
	b.PublishDesignChange("z/test.dig")
	b.Publish(Event{Type: EventCommandStarted, Data: map[string]string{"command": "prog"}})

	time.Sleep(50 * time.Millisecond)
	design, other := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, EventDesignChanged) {
			design++
			if !strings.Contains(s, `"design":"z/test.dig"`) {
				t.Errorf("missing design path in %q", s)
			}
		} else {
			other++
		}
	}
	if design != 1 {
		t.Errorf("design events = %d, want 1 (throttled)", design)
	}
	if other != 1 {
		t.Errorf("other events = %d, want 1", other)
	}
}

// flushRecorder guards the recorder body so the test can read it while
// the handler is still writing.
type flushRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (f *flushRecorder) Header() http.Header { return f.rec.Header() }

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Write(p)
}

func (f *flushRecorder) WriteHeader(code int) { f.rec.WriteHeader(code) }

func (f *flushRecorder) Flush() {}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(Event{Type: EventCommandFailed, Data: map[string]string{"command": "prog", "error": "boom"}})
	deadline = time.Now().Add(time.Second)
	for !strings.Contains(w.body(), "event: command.failed") {
		if time.Now().After(deadline) {
			t.Fatalf("handler output missing event: %q", w.body())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: EventCommandStarted, Data: map[string]int{"i": i}})
	}
	// Reaching here without deadlock is the assertion.
	if b.ClientCount() != 1 {
		t.Errorf("slow client was dropped")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: EventCommandStarted})
	b.PublishDesignChange("x.dig")
	b.Close()
}
