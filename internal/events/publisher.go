package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Publisher delivers round events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi fans a publish out to several publishers; the first error wins but
// every publisher still sees the event.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Bus is the in-process publisher: subscribers receive every event on a
// dedicated dispatch goroutine, so publishing never blocks the round engine.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
	ch   chan Event
}

// NewBus creates a bus with a buffered dispatch channel.
func NewBus() *Bus {
	return &Bus{
		ch: make(chan Event, 256),
	}
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish enqueues an event for dispatch. A full buffer drops the event
// rather than stalling the engine; display sync is best-effort.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	select {
	case b.ch <- event:
		return nil
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("tournament_id", event.TournamentID).
			Msg("event bus full, dropping event")
		return nil
	}
}

// Start dispatches events to subscribers until the context is cancelled.
func (b *Bus) Start(ctx context.Context) {
	log.Info().Msg("event bus started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event bus shutting down")
			return
		case event := <-b.ch:
			b.mu.RLock()
			subs := append([]func(Event){}, b.subs...)
			b.mu.RUnlock()
			for _, fn := range subs {
				fn(event)
			}
		}
	}
}
