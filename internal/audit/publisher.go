package audit

import (
	"context"
	"time"
)

// Store is the persistence interface audit sinks implement.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to the background worker without blocking domain
// logic. A full inbox drops the event rather than stalling a registration;
// the audit trail is an observability surface, not a correctness dependency.
type Publisher struct {
	inbox   chan<- Event
	dropped func()
}

// NewPublisher wraps an inbox channel. dropped is invoked on overflow and may
// be nil.
func NewPublisher(inbox chan<- Event, dropped func()) *Publisher {
	return &Publisher{inbox: inbox, dropped: dropped}
}

// Emit queues an event, stamping the time when unset.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
	}
}
