package service

import (
	"context"
	"sync"
	"time"

	"github.com/totegamma/concrnt-adz"
)

// EventLog is an in-memory append-only event log.
type EventLog struct {
	mu     sync.RWMutex
	events []adz.Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Emit(ctx context.Context, event adz.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Seq = uint64(len(l.events)) + 1
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	l.events = append(l.events, event)
	return nil
}

// Since returns up to limit events with a sequence number greater than seq.
func (l *EventLog) Since(ctx context.Context, seq uint64, limit int) ([]adz.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.events)) {
		return []adz.Event{}, nil
	}
	rest := l.events[seq:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	out := make([]adz.Event, len(rest))
	copy(out, rest)
	return out, nil
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
