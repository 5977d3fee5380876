package memory

import (
	"context"
	"sync"
)

// BuzzChannel is an in-process implementation of app.BuzzChannel.
type BuzzChannel struct {
	mu        sync.Mutex
	listeners map[chan int]struct{}
}

func NewBuzzChannel() *BuzzChannel {
	return &BuzzChannel{listeners: make(map[chan int]struct{})}
}

func (b *BuzzChannel) Buzz(ctx context.Context, teamID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- teamID:
		default:
		}
	}
	return nil
}

func (b *BuzzChannel) Listen(ctx context.Context) (<-chan int, func(), error) {
	ch := make(chan int, 8)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel, nil
}
