// Package storage defines the coordination journal: an append-only record of
// reservation grants, conflicts, releases, renewals, and lock recoveries.
// The journal is observability, not coordination state; the reservation
// artifacts on disk stay authoritative.
package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/agentmail/internal/core"
)

type Store interface {
	AppendEvent(core.Event) (uint64, error)
	RecentEvents(project string, limit int) ([]core.Event, error)
}

// InMemory is a minimal in-memory journal for tests.
type InMemory struct {
	mu     sync.Mutex
	cursor uint64
	events []core.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) AppendEvent(ev core.Event) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor++
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.Cursor = m.cursor
	m.events = append(m.events, ev)
	return m.cursor, nil
}

func (m *InMemory) RecentEvents(project string, limit int) ([]core.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Event
	for _, ev := range m.events {
		if project == "" || ev.Project == project {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor > out[j].Cursor })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
