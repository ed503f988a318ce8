package editor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quantsight/flowcanvas/internal/autosave"
	"github.com/quantsight/flowcanvas/internal/metrics"
	"github.com/quantsight/flowcanvas/internal/simulate"
	"github.com/quantsight/flowcanvas/internal/store"
	"github.com/quantsight/flowcanvas/internal/validate"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Manager hands out editing sessions keyed by workflow id and owns the
// shared collaborators (store, simulation orchestrator, policy table).
type Manager struct {
	ctx    context.Context
	store  store.Store
	sim    *simulate.Orchestrator
	quiet  time.Duration
	policy atomic.Pointer[validate.Policy]

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. quiet is the autosave quiet period.
func NewManager(ctx context.Context, st store.Store, sim *simulate.Orchestrator, quiet time.Duration, pol validate.Policy) *Manager {
	m := &Manager{
		ctx:      ctx,
		store:    st,
		sim:      sim,
		quiet:    quiet,
		sessions: make(map[string]*Session),
	}
	m.policy.Store(&pol)
	return m
}

// SetPolicy swaps the validation policy table (config hot reload).
func (m *Manager) SetPolicy(pol validate.Policy) {
	m.policy.Store(&pol)
}

// Create starts a brand-new workflow, optionally seeded with a start node,
// and opens a session for it.
func (m *Manager) Create(seedStart bool) *Session {
	def := workflow.Definition{
		ID:    uuid.New().String(),
		Nodes: []workflow.Node{},
		Edges: []workflow.Edge{},
	}
	if seedStart {
		def.Nodes = append(def.Nodes, workflow.Node{
			ID:       uuid.New().String(),
			Type:     workflow.NodeStart,
			Position: workflow.GridPosition(0),
			Data:     workflow.NodeData{Label: "Start"},
		})
	}
	return m.open(def, true)
}

// Open loads a saved workflow and opens a session for it, replacing any
// session already editing that id. Positions are defaulted on load.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	def, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	workflow.NormalizePositions(&def)
	return m.open(def, false), nil
}

// Get returns the open session for a workflow id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no open session for workflow %q", id)
	}
	return s, nil
}

// Close tears down the session for a workflow id: pending autosave is
// cancelled without flushing and simulation sessions are discarded.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
		metrics.ActiveSessions.Dec()
	}
}

// Sim exposes the shared simulation orchestrator to the HTTP layer.
func (m *Manager) Sim() *simulate.Orchestrator { return m.sim }

// Store exposes the persistence collaborator to the HTTP layer.
func (m *Manager) Store() store.Store { return m.store }

func (m *Manager) open(def workflow.Definition, fresh bool) *Session {
	s := &Session{
		def:    def,
		fresh:  fresh,
		policy: func() validate.Policy { return *m.policy.Load() },
		sim:    m.sim,
	}
	s.sched = autosave.New(m.ctx, m.quiet, func(ctx context.Context, snap workflow.Definition) error {
		_, err := m.store.Save(ctx, snap)
		return err
	})

	m.mu.Lock()
	if old, ok := m.sessions[def.ID]; ok {
		old.close()
		metrics.ActiveSessions.Dec()
	}
	m.sessions[def.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()
	return s
}
