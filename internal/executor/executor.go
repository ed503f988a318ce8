// Package executor defines the node-executor collaborator boundary. The
// engine dispatches exactly once per single-step execution and records the
// result envelope; it performs no internal retry.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Executor runs a single node of a given type. Inputs are the cached
// outputs of the node's upstream neighbors, keyed by node id.
type Executor interface {
	// Type returns the node type string this executor is registered under.
	Type() workflow.NodeType
	// Execute runs the node and returns its output bag.
	Execute(ctx context.Context, node workflow.Node, inputs map[string]any) (map[string]any, error)
}

// Registry maps node types to their executors. Safe for concurrent reads;
// Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	executors map[workflow.NodeType]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[workflow.NodeType]Executor)}
}

// Register adds an executor. Panics on duplicate type to surface
// misconfiguration early.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Type()]; exists {
		panic(fmt.Sprintf("executor registry: duplicate type %q", e.Type()))
	}
	r.executors[e.Type()] = e
}

// Get returns the executor for the given node type.
func (r *Registry) Get(t workflow.NodeType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[t]
	if !ok {
		return nil, fmt.Errorf("no executor registered for node type %q", t)
	}
	return e, nil
}

// Types returns all registered node types.
func (r *Registry) Types() []workflow.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]workflow.NodeType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	return out
}
