package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"grower/internal/feed"
	"grower/internal/roster"
)

type memoryData struct {
	mu     sync.RWMutex
	values map[string]string
}

// Memory keeps everything in process. When built with a feed it behaves like
// a shared remote store: saves are broadcast and Peer gives another session
// a view of the same data.
type Memory struct {
	data   *memoryData
	feed   feed.Feed
	origin string
}

var (
	_ Store      = (*Memory)(nil)
	_ Subscriber = (*Memory)(nil)
)

// NewMemory creates an empty store. f may be nil.
func NewMemory(f feed.Feed) *Memory {
	return &Memory{
		data:   &memoryData{values: make(map[string]string)},
		feed:   f,
		origin: uuid.NewString(),
	}
}

// Peer returns a store sharing data and feed but with its own origin.
func (m *Memory) Peer() *Memory {
	return &Memory{data: m.data, feed: m.feed, origin: uuid.NewString()}
}

func (m *Memory) get(key string) (string, bool) {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	v, ok := m.data.values[key]
	return v, ok
}

func (m *Memory) set(key, value string) {
	m.data.mu.Lock()
	m.data.values[key] = value
	m.data.mu.Unlock()
}

func (m *Memory) LoadRoster(ctx context.Context) ([]roster.Student, error) {
	raw, ok := m.get(RosterKey)
	if !ok {
		return nil, nil
	}
	return decodeRoster(raw)
}

func (m *Memory) SaveRoster(ctx context.Context, list []roster.Student) error {
	raw, err := encodeRoster(list)
	if err != nil {
		return err
	}
	m.set(RosterKey, raw)
	if m.feed == nil {
		return nil
	}
	return m.feed.Publish(ctx, feed.Message{Origin: m.origin, Body: []byte(raw)})
}

func (m *Memory) LoadExpiry(ctx context.Context) (string, error) {
	v, _ := m.get(ExpiryKey)
	return v, nil
}

func (m *Memory) SaveExpiry(ctx context.Context, date string) error {
	m.set(ExpiryKey, date)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, fn func([]roster.Student)) error {
	if m.feed == nil {
		return nil
	}
	return subscribe(ctx, m.feed, m.origin, fn)
}

func (m *Memory) Healthy(ctx context.Context) bool { return true }

func (m *Memory) Close() error { return nil }
