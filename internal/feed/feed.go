package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Message is one broadcast roster snapshot.
type Message struct {
	Origin string          `json:"origin"`
	Body   json.RawMessage `json:"body"`
}

// Feed broadcasts messages to every subscriber.
type Feed interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel-backed fan-out feed for dev/testing.
type InMemory struct {
	size int
	mu   sync.Mutex
	subs map[chan Message]struct{}
}

// NewInMemory creates a feed whose subscribers buffer up to size messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{size: size, subs: make(map[chan Message]struct{})}
}

// Publish delivers msg to every current subscriber. A subscriber whose
// buffer is full misses the message.
func (f *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel that is closed when ctx ends.
func (f *InMemory) Subscribe(ctx context.Context) (<-chan Message, error) {
	ch := make(chan Message, f.size)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// Redis implements the feed over a Redis pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis builds a feed publishing on channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = "grower:roster"
	}
	return &Redis{client: client, channel: channel}
}

// Publish sends msg to the channel.
func (f *Redis) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

// Subscribe streams decoded messages until ctx ends. Undecodable payloads are dropped.
func (f *Redis) Subscribe(ctx context.Context) (<-chan Message, error) {
	sub := f.client.Subscribe(ctx, f.channel)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
