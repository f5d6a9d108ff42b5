package store

import (
	"context"
	"log"

	"grower/internal/feed"
	"grower/internal/roster"
)

// subscribe forwards snapshots from other origins to fn until ctx ends.
func subscribe(ctx context.Context, f feed.Feed, origin string, fn func([]roster.Student)) error {
	msgs, err := f.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgs {
			if msg.Origin == origin {
				continue
			}
			list, err := decodeRoster(string(msg.Body))
			if err != nil {
				log.Printf("dropping remote snapshot from %s: %v", msg.Origin, err)
				continue
			}
			fn(list)
		}
	}()
	return nil
}
