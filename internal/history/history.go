// Package history records host lifecycle events (launches, readiness, exits,
// port reclaims, shutdowns) to an audit sink for post-mortem diagnostics.
// The host only ever appends; nothing in the host reads the trail back.
package history

import (
	"context"
	"log/slog"
	"time"
)

// EventType enumerates the lifecycle moments worth auditing.
type EventType string

const (
	EventLaunched  EventType = "launched"
	EventReady     EventType = "ready"
	EventExited    EventType = "exited"
	EventReclaimed EventType = "reclaimed"
	EventShutdown  EventType = "shutdown"
)

// Event is one audit record.
type Event struct {
	Type       EventType
	OccurredAt time.Time
	Service    string // role name, or "host" for host-level events
	PID        int
	Detail     string // exit code, reclaimed port, shutdown trigger, ...
}

// Sink is an append-only destination for events.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Recorder fans events out to sinks, best-effort. Sink failures are logged
// and never propagate; an audit trail must not affect the lifecycle it
// observes.
type Recorder struct {
	sinks []Sink
	log   *slog.Logger
}

func NewRecorder(log *slog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, log: log}
}

// Record timestamps and sends the event to every sink.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil || len(r.sinks) == 0 {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	for _, s := range r.sinks {
		if err := s.Send(ctx, e); err != nil {
			r.log.Debug("history sink write failed", "type", string(e.Type), "error", err)
		}
	}
}

// Close closes all sinks.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	for _, s := range r.sinks {
		_ = s.Close()
	}
}
