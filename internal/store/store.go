package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"grower/internal/roster"
)

// Fixed storage keys of the persisted layout.
const (
	RosterKey = "grower_master_v12"
	ExpiryKey = "grower_expiry_v1"
)

// Store persists the roster and the license expiry date.
type Store interface {
	// LoadRoster returns nil when no roster was saved yet.
	LoadRoster(ctx context.Context) ([]roster.Student, error)
	SaveRoster(ctx context.Context, list []roster.Student) error
	// LoadExpiry returns "" when no expiry was saved yet.
	LoadExpiry(ctx context.Context) (string, error)
	SaveExpiry(ctx context.Context, date string) error
	Healthy(ctx context.Context) bool
	Close() error
}

// Subscriber is implemented by stores shared between sessions. fn receives
// every roster snapshot written by another session until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func([]roster.Student)) error
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend     string // sqlite, postgres, redis or memory
	DBPath      string
	DatabaseURL string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return NewSQLite(opts.DBPath)
	case "postgres":
		return NewPostgres(ctx, opts.DatabaseURL)
	case "redis":
		return NewRedis(ctx, NewRedisClient(opts.RedisAddr), opts.RedisPrefix)
	case "memory":
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func encodeRoster(list []roster.Student) (string, error) {
	if list == nil {
		list = []roster.Student{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", errors.Wrap(err, "encoding roster")
	}
	return string(data), nil
}

func decodeRoster(raw string) ([]roster.Student, error) {
	var list []roster.Student
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "decoding roster")
	}
	return roster.Normalize(list), nil
}
