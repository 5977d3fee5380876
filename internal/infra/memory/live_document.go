package memory

import (
	"context"
	"sync"

	"omniquiz-service/internal/domain"
	"omniquiz-service/internal/live"
)

// LiveDocument is an in-process implementation of app.LiveDocument: one
// current snapshot, N subscribers notified on every replace. Useful for
// single-process setups and tests; the Redis document covers real fan-out.
type LiveDocument struct {
	mu          sync.RWMutex
	state       domain.LiveGameState
	subscribers map[chan domain.LiveGameState]struct{}
}

func NewLiveDocument() *LiveDocument {
	return &LiveDocument{
		state:       live.EmptyState(),
		subscribers: make(map[chan domain.LiveGameState]struct{}),
	}
}

func (d *LiveDocument) Publish(ctx context.Context, state domain.LiveGameState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
	for ch := range d.subscribers {
		select {
		case ch <- state:
		default:
			// Replace the stale snapshot; latest write wins.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
	return nil
}

func (d *LiveDocument) Load(ctx context.Context) (domain.LiveGameState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state, nil
}

func (d *LiveDocument) Subscribe(ctx context.Context) (<-chan domain.LiveGameState, func(), error) {
	ch := make(chan domain.LiveGameState, 8)

	d.mu.Lock()
	d.subscribers[ch] = struct{}{}
	initial := d.state
	d.mu.Unlock()

	ch <- initial

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, ch)
			close(ch)
			d.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (d *LiveDocument) Reset(ctx context.Context) error {
	return d.Publish(ctx, live.EmptyState())
}
