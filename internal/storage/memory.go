package storage

import (
	"sort"
	"sync"
	"time"

	"agenda/internal/domain"
)

// Memory is a map-backed backend. It backs tests and any caller that
// wants a throwaway collection without touching disk.
type Memory struct {
	mu           sync.Mutex
	events       map[int64]*domain.Event
	nextID       int64
	lastRepeatID int64
}

func NewMemory() *Memory {
	return &Memory{events: make(map[int64]*domain.Event)}
}

func (m *Memory) Insert(e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now()
	e.ID = m.nextID
	e.CreatedAt = now
	e.UpdatedAt = now
	m.events[e.ID] = e.Clone()
	return nil
}

func (m *Memory) Get(id int64) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (m *Memory) Put(e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[e.ID] = e.Clone()
	return nil
}

func (m *Memory) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.events, id)
	return nil
}

func (m *Memory) All() ([]*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteByRepeatID(repeatID int64, fromDate string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, e := range m.events {
		if e.RepeatID != repeatID {
			continue
		}
		if fromDate != "" && e.Date < fromDate {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		delete(m.events, id)
	}
	return ids, nil
}

func (m *Memory) NextRepeatID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRepeatID++
	return m.lastRepeatID, nil
}

func (m *Memory) Close() error {
	return nil
}
