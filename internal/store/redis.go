package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"grower/internal/feed"
	"grower/internal/roster"
)

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// Redis is the shared remote store. Values live under "<prefix>:<key>" and
// every roster write is broadcast on "<prefix>:roster" so other sessions can
// follow it. Concurrent writers are not reconciled: the last SET wins.
type Redis struct {
	client *redis.Client
	prefix string
	feed   *feed.Redis
	origin string
}

var (
	_ Store      = (*Redis)(nil)
	_ Subscriber = (*Redis)(nil)
)

// NewRedis wraps client; the connection is checked once.
func NewRedis(ctx context.Context, client *redis.Client, prefix string) (*Redis, error) {
	if prefix == "" {
		prefix = "grower"
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Redis{
		client: client,
		prefix: prefix,
		feed:   feed.NewRedis(client, prefix+":roster"),
		origin: uuid.NewString(),
	}, nil
}

func (r *Redis) key(name string) string { return r.prefix + ":" + name }

func (r *Redis) get(ctx context.Context, name string) (string, error) {
	v, err := r.client.Get(ctx, r.key(name)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, errors.Wrapf(err, "reading %s", name)
}

func (r *Redis) LoadRoster(ctx context.Context) ([]roster.Student, error) {
	raw, err := r.get(ctx, RosterKey)
	if err != nil || raw == "" {
		return nil, err
	}
	return decodeRoster(raw)
}

// SaveRoster writes the snapshot and then announces it.
func (r *Redis) SaveRoster(ctx context.Context, list []roster.Student) error {
	raw, err := encodeRoster(list)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(RosterKey), raw, 0).Err(); err != nil {
		return errors.Wrap(err, "writing roster")
	}
	return errors.Wrap(r.feed.Publish(ctx, feed.Message{Origin: r.origin, Body: []byte(raw)}), "publishing roster")
}

func (r *Redis) LoadExpiry(ctx context.Context) (string, error) {
	return r.get(ctx, ExpiryKey)
}

func (r *Redis) SaveExpiry(ctx context.Context, date string) error {
	return errors.Wrap(r.client.Set(ctx, r.key(ExpiryKey), date, 0).Err(), "writing expiry")
}

func (r *Redis) Subscribe(ctx context.Context, fn func([]roster.Student)) error {
	return subscribe(ctx, r.feed, r.origin, fn)
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.client == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error { return r.client.Close() }
