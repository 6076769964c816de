package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

// collectSink records every event it receives.
type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *collectSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := &collectSink{}
	d := NewDispatcher(Config{BufferSize: 64, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := sink.len(); got != 10 {
		t.Errorf("delivered %d events, want 10", got)
	}
	if d.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that blocks until released, so the buffer can be saturated
	// deterministically.
	release := make(chan struct{})
	blocking := sinkFunc(func(context.Context, Event) { <-release })

	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, blocking)

	// First event occupies the worker, second fills the buffer, the rest
	// must drop rather than block the caller.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}

	deadline := time.After(2 * time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("no events dropped")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(release)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &collectSink{}
	d := NewDispatcher(Config{BufferSize: 4, DropIfFull: true}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})
	if got := sink.len(); got != 0 {
		t.Errorf("event delivered after close: %d", got)
	}
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Error("nil dispatcher reported drops")
	}
}

func TestChannelSink(t *testing.T) {
	s := NewChannelSink(2)
	s.Emit(context.Background(), Event{EventType: "a"})
	s.Emit(context.Background(), Event{EventType: "b"})
	s.Emit(context.Background(), Event{EventType: "overflow"}) // dropped, never blocks

	if got := <-s.Events(); got.EventType != "a" {
		t.Errorf("first event = %q", got.EventType)
	}
	if got := <-s.Events(); got.EventType != "b" {
		t.Errorf("second event = %q", got.EventType)
	}
	select {
	case got := <-s.Events():
		t.Errorf("unexpected third event: %q", got.EventType)
	default:
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)

	s.Emit(context.Background(), Event{
		Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		EventType: "login_success",
		AccountID: "7",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded Event
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, line)
	}
	if decoded.EventType != "login_success" || !decoded.Success || decoded.AccountID != "7" {
		t.Errorf("decoded = %+v", decoded)
	}
}

type sinkFunc func(context.Context, Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
