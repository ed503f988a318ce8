// Package store is the persistence collaborator boundary: opaque
// request/response save and load of whole workflow definitions. The engine
// does not retry on failure beyond surfacing the error.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// ErrNotFound is returned when no workflow exists for the requested id.
var ErrNotFound = errors.New("workflow not found")

// Saved identifies a persisted workflow.
type Saved struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists and loads whole workflow definitions.
type Store interface {
	Save(ctx context.Context, def workflow.Definition) (Saved, error)
	Load(ctx context.Context, id string) (workflow.Definition, error)
	List(ctx context.Context) ([]Saved, error)
}

// Memory is an in-process Store for tests and database-less runs.
type Memory struct {
	mu        sync.RWMutex
	defs      map[string]workflow.Definition
	updatedAt map[string]time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		defs:      make(map[string]workflow.Definition),
		updatedAt: make(map[string]time.Time),
	}
}

func (m *Memory) Save(ctx context.Context, def workflow.Definition) (Saved, error) {
	if def.ID == "" {
		return Saved{}, errors.New("definition id is required")
	}
	now := time.Now().UTC()
	m.mu.Lock()
	m.defs[def.ID] = def.Clone()
	m.updatedAt[def.ID] = now
	m.mu.Unlock()
	return Saved{ID: def.ID, UpdatedAt: now}, nil
}

func (m *Memory) Load(ctx context.Context, id string) (workflow.Definition, error) {
	m.mu.RLock()
	def, ok := m.defs[id]
	m.mu.RUnlock()
	if !ok {
		return workflow.Definition{}, ErrNotFound
	}
	return def.Clone(), nil
}

func (m *Memory) List(ctx context.Context) ([]Saved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Saved, 0, len(m.defs))
	for id := range m.defs {
		out = append(out, Saved{ID: id, UpdatedAt: m.updatedAt[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
