package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"omniquiz-service/internal/domain"
	"omniquiz-service/internal/live"
)

const (
	liveDocKey  = "omniquiz:live:current"
	liveChannel = "omniquiz:live:updates"
)

// LiveDocument replicates the game snapshot through Redis: the writer SETs
// the whole document and PUBLISHes it on one channel; each viewer holds one
// subscription and re-renders on every message. Whole-snapshot delivery makes
// ordering a non-issue — the latest write wins.
type LiveDocument struct {
	client *redis.Client
}

func NewLiveDocument(client *redis.Client) *LiveDocument {
	return &LiveDocument{client: client}
}

func (d *LiveDocument) Publish(ctx context.Context, state domain.LiveGameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, liveDocKey, raw, 0).Err(); err != nil {
		return err
	}
	return d.client.Publish(ctx, liveChannel, raw).Err()
}

// Load returns the current document, or the canonical empty state when the
// document has never been written.
func (d *LiveDocument) Load(ctx context.Context) (domain.LiveGameState, error) {
	raw, err := d.client.Get(ctx, liveDocKey).Bytes()
	if err == redis.Nil {
		return live.EmptyState(), nil
	}
	if err != nil {
		return domain.LiveGameState{}, err
	}
	var state domain.LiveGameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return live.EmptyState(), nil
	}
	return state, nil
}

// Subscribe delivers the current document first, then one snapshot per
// publish. Cancel tears down the Redis subscription.
func (d *LiveDocument) Subscribe(ctx context.Context) (<-chan domain.LiveGameState, func(), error) {
	pubsub := d.client.Subscribe(ctx, liveChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	ch := make(chan domain.LiveGameState, 8)

	initial, err := d.Load(ctx)
	if err == nil {
		ch <- initial
	}

	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var state domain.LiveGameState
			if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
				log.Printf("live document: bad payload: %v", err)
				continue
			}
			select {
			case ch <- state:
			default:
				// Latest snapshot wins over a stale buffered one.
				select {
				case <-ch:
				default:
				}
				ch <- state
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
		})
	}
	return ch, cancel, nil
}

// Reset writes the canonical empty state; the operator-facing one-shot.
func (d *LiveDocument) Reset(ctx context.Context) error {
	return d.Publish(ctx, live.EmptyState())
}
