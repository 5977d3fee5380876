package redis

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const buzzChannel = "omniquiz:live:buzz"

// BuzzChannel is the viewers' only write path back to the host: team IDs
// published on a dedicated channel.
type BuzzChannel struct {
	client *redis.Client
}

func NewBuzzChannel(client *redis.Client) *BuzzChannel {
	return &BuzzChannel{client: client}
}

func (b *BuzzChannel) Buzz(ctx context.Context, teamID int) error {
	return b.client.Publish(ctx, buzzChannel, strconv.Itoa(teamID)).Err()
}

func (b *BuzzChannel) Listen(ctx context.Context) (<-chan int, func(), error) {
	pubsub := b.client.Subscribe(ctx, buzzChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	ch := make(chan int, 8)
	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			teamID, err := strconv.Atoi(msg.Payload)
			if err != nil {
				log.Printf("buzz channel: bad payload %q", msg.Payload)
				continue
			}
			select {
			case ch <- teamID:
			default:
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
