// Package history exports share lifecycle events to external systems.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventStopped   EventType = "stopped"
	EventErrored   EventType = "errored"
	EventDestroyed EventType = "destroyed"
)

// Event records one lifecycle transition of a supervised share.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ShareID    string    `json:"share_id"`
	PID        int       `json:"pid"`
	ConfigPath string    `json:"config_path"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for lifecycle events (audit/analytics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Recorder fans one event out to a set of sinks; send errors are dropped,
// the control path never fails on observability.
type Recorder struct {
	sinks []Sink
}

func NewRecorder(sinks ...Sink) *Recorder { return &Recorder{sinks: sinks} }

func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	for _, s := range r.sinks {
		_ = s.Send(ctx, e)
	}
}
