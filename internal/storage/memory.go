package storage

import (
	"context"
	"sync"

	"videofinder-bot/internal/textclean"
)

// Memory is a process-local Store. Useful for tests and throwaway runs.
type Memory struct {
	mu      sync.RWMutex
	records []Record
	index   map[int]int
}

func NewMemory() *Memory {
	return &Memory{index: map[int]int{}}
}

func (m *Memory) InsertIfAbsent(_ context.Context, rec Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[rec.MessageID]; ok {
		return false, nil
	}
	m.index[rec.MessageID] = len(m.records)
	m.records = append(m.records, rec)
	return true, nil
}

func (m *Memory) FindBySubstring(_ context.Context, token string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Record{}
	for _, rec := range m.records {
		if textclean.ContainsFold(rec.FileName, token) || textclean.ContainsFold(rec.Caption, token) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) FindAll(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) FindCaption(_ context.Context, messageID int) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[messageID]
	if !ok {
		return "", false, nil
	}
	return m.records[i].Caption, true, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *Memory) Close() error { return nil }
