package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memorySink) Send(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestRecorderFanOut(t *testing.T) {
	a := &memorySink{}
	b := &memorySink{}
	r := NewRecorder(a, b)

	r.Record(context.Background(), Event{Type: EventStarted, ShareID: "abc", PID: 42})

	for _, s := range []*memorySink{a, b} {
		if len(s.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(s.events))
		}
		if s.events[0].Type != EventStarted || s.events[0].ShareID != "abc" {
			t.Fatalf("unexpected event: %+v", s.events[0])
		}
	}
}

func TestRecorderDefaultsTimestamp(t *testing.T) {
	s := &memorySink{}
	NewRecorder(s).Record(context.Background(), Event{Type: EventStopped, ShareID: "abc"})
	if s.events[0].OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be filled in")
	}
	if s.events[0].OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", s.events[0].OccurredAt.Location())
	}
}

func TestRecorderKeepsExplicitTimestamp(t *testing.T) {
	s := &memorySink{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	NewRecorder(s).Record(context.Background(), Event{Type: EventErrored, ShareID: "abc", OccurredAt: at})
	if !s.events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected %v, got %v", at, s.events[0].OccurredAt)
	}
}

func TestRecorderDropsSinkErrors(t *testing.T) {
	failing := &memorySink{err: errors.New("down")}
	ok := &memorySink{}
	r := NewRecorder(failing, ok)

	r.Record(context.Background(), Event{Type: EventDestroyed, ShareID: "abc"})
	if len(ok.events) != 1 {
		t.Fatalf("healthy sink should still receive the event, got %d", len(ok.events))
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), Event{Type: EventStarted, ShareID: "abc"})
}
