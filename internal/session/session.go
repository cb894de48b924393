// Package session keeps the per-user dialog state: which group, if any, a
// user is about to narrow down by episode.
package session

import (
	"context"
	"strconv"
	"sync"
)

// Key identifies the owner of a session.
type Key string

// UserKey returns the session key of a Telegram user.
func UserKey(userID int64) Key {
	return Key(strconv.FormatInt(userID, 10))
}

// Store holds pending group keys. Implementations touch only the key they
// are given.
type Store interface {
	// Pending returns the pending group of key, if any.
	Pending(ctx context.Context, key Key) (string, bool, error)
	SetPending(ctx context.Context, key Key, group string) error
	// Take returns the pending group and clears it in one step.
	Take(ctx context.Context, key Key) (string, bool, error)
	Clear(ctx context.Context, key Key) error
}

// Memory is an in-process Store. State is lost on restart.
type Memory struct {
	mu      sync.Mutex
	pending map[Key]string
}

func NewMemory() *Memory {
	return &Memory{pending: map[Key]string{}}
}

func (m *Memory) Pending(_ context.Context, key Key) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.pending[key]
	return group, ok, nil
}

func (m *Memory) SetPending(_ context.Context, key Key, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[key] = group
	return nil
}

func (m *Memory) Take(_ context.Context, key Key) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.pending[key]
	delete(m.pending, key)
	return group, ok, nil
}

func (m *Memory) Clear(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	return nil
}
