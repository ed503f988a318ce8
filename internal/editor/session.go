// Package editor owns the editing session: the live definition, the dirty
// flag, validation on every proposed mutation, autosave scheduling, and the
// simulation sessions attached to the workflow. All business logic lives
// here; the HTTP layer is a thin adapter.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/quantsight/flowcanvas/internal/autosave"
	"github.com/quantsight/flowcanvas/internal/graph"
	"github.com/quantsight/flowcanvas/internal/impact"
	"github.com/quantsight/flowcanvas/internal/metrics"
	"github.com/quantsight/flowcanvas/internal/simulate"
	"github.com/quantsight/flowcanvas/internal/validate"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Session is one workflow's editing context. Mutations validate the
// proposed next state first and commit only a fully accepted definition;
// a rejection leaves the definition byte-for-byte unchanged.
type Session struct {
	mu     sync.Mutex
	def    workflow.Definition
	fresh  bool // brand-new workflow; isolated-node warnings suppressed
	policy func() validate.Policy
	sched  *autosave.Scheduler
	sim    *simulate.Orchestrator
	sims   []string // simulation sessions owned by this workflow
}

// WorkflowID returns the id of the definition being edited.
func (s *Session) WorkflowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.ID
}

// Definition returns a snapshot of the current definition.
func (s *Session) Definition() workflow.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.Clone()
}

// AddNode validates type policy and config schema, then commits. An empty
// id or missing position is filled in before validation.
func (s *Session) AddNode(n workflow.Node) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Position == nil {
		n.Position = workflow.GridPosition(len(s.def.Nodes))
	}

	pol := s.policy()
	if res := pol.ValidateNodeAddition(n.Type, s.def.Nodes, s.def.Edges); !res.IsValid {
		return s.def.Clone(), s.reject(workflow.StructuralRejection(res.Message))
	}
	if res := pol.ValidateConfig(n.Type, n.Data.Config); !res.IsValid {
		return s.def.Clone(), s.reject(workflow.SchemaRejection("invalid node configuration", res.Errors))
	}

	next, err := graph.AddNode(s.def, n)
	if err != nil {
		return s.def.Clone(), s.rejectErr(err)
	}
	s.commit(next, "add_node")
	return next.Clone(), nil
}

// AddEdge runs every pre-commit edge rule, including prospective cycle
// detection, and commits only when all pass. Re-proposing an existing
// connection is an idempotent accept and does not mark the workflow dirty.
func (s *Session) AddEdge(e workflow.Edge) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if rej := s.policy().ValidateEdgeAddition(s.def, e); rej != nil {
		if len(rej.Cycle) > 0 {
			metrics.CycleRejections.Inc()
		}
		return s.def.Clone(), s.reject(rej)
	}
	next, err := graph.AddEdge(s.def, e)
	if err != nil {
		return s.def.Clone(), s.rejectErr(err)
	}
	if len(next.Edges) == len(s.def.Edges) {
		return s.def.Clone(), nil // duplicate proposal, no-op
	}
	s.commit(next, "add_edge")
	return next.Clone(), nil
}

// UpdateNode applies a partial update. A patch carrying a config bag is
// schema-validated against the node's type before anything is applied.
func (s *Session) UpdateNode(id string, patch graph.NodePatch) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Config != nil {
		node := s.def.Node(id)
		if node == nil {
			return s.def.Clone(), s.reject(workflow.StructuralRejection("node " + id + " does not exist"))
		}
		if res := s.policy().ValidateConfig(node.Type, patch.Config); !res.IsValid {
			return s.def.Clone(), s.reject(workflow.SchemaRejection("invalid node configuration", res.Errors))
		}
	}
	next, err := graph.UpdateNode(s.def, id, patch)
	if err != nil {
		return s.def.Clone(), s.rejectErr(err)
	}
	s.commit(next, "update_node")
	return next.Clone(), nil
}

// RemoveEdge deletes a single edge.
func (s *Session) RemoveEdge(id string) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := graph.RemoveEdge(s.def, id)
	if err != nil {
		return s.def.Clone(), s.rejectErr(err)
	}
	s.commit(next, "remove_edge")
	return next.Clone(), nil
}

// DeletionImpact reports what removing the node would touch, for the
// confirmation dialog. No side effects.
func (s *Session) DeletionImpact(id string) (impact.Impact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def.Node(id) == nil {
		return impact.Impact{}, workflow.StructuralRejection("node " + id + " does not exist")
	}
	return impact.Analyze(id, s.def.Nodes, s.def.Edges), nil
}

// DeleteNode removes the node, cascades its edges, and rewrites textual
// references to it in the remaining nodes' configs.
func (s *Session) DeleteNode(id string) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def.Node(id) == nil {
		return s.def.Clone(), s.reject(workflow.StructuralRejection("node " + id + " does not exist"))
	}
	next := s.def.Clone()
	next.Nodes, next.Edges = impact.Apply(id, next.Nodes, next.Edges)
	s.commit(next, "delete_node")
	return next.Clone(), nil
}

// AddDataSource declares a global external-resource reference.
func (s *Session) AddDataSource(ds workflow.DataSource) (workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := graph.AddDataSource(s.def, ds)
	if err != nil {
		return s.def.Clone(), s.rejectErr(err)
	}
	if len(next.DataSources) == len(s.def.DataSources) {
		return s.def.Clone(), nil // duplicate id, no-op
	}
	s.commit(next, "add_data_source")
	return next.Clone(), nil
}

// Structure reports cycles and isolated-node warnings for the current
// definition. Warnings are suppressed while the workflow is brand-new.
func (s *Session) Structure() validate.StructureReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validate.ValidateStructure(s.def.Nodes, s.def.Edges,
		validate.StructureOptions{SkipIsolatedForNew: s.fresh})
}

// Flush persists immediately through the autosave scheduler.
func (s *Session) Flush(ctx context.Context) error {
	return s.sched.FlushNow(ctx)
}

// Dirty reports whether unsaved mutations exist.
func (s *Session) Dirty() bool { return s.sched.Dirty() }

// CreateSimulation freezes the current definition into a new simulation
// session and returns its id.
func (s *Session) CreateSimulation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sid := s.sim.CreateSession(s.def)
	s.sims = append(s.sims, sid)
	return sid
}

// close tears the session down on workflow switch: the pending autosave is
// cancelled without flushing and every simulation session is discarded.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.Stop()
	for _, sid := range s.sims {
		s.sim.Discard(sid)
	}
	s.sims = nil
}

// commit replaces the definition, marks it dirty, and notifies the
// scheduler. Caller holds mu.
func (s *Session) commit(next workflow.Definition, op string) {
	s.def = next
	s.fresh = s.fresh && len(next.Nodes) <= 1 && len(next.Edges) == 0
	metrics.MutationsApplied.WithLabelValues(op).Inc()
	s.sched.OnMutation(next.Clone())
}

func (s *Session) reject(rej *workflow.Rejection) error {
	metrics.MutationsRejected.WithLabelValues(string(rej.Kind)).Inc()
	slog.Debug("mutation rejected", "workflow_id", s.def.ID, "kind", rej.Kind, "reason", rej.Message)
	return rej
}

func (s *Session) rejectErr(err error) error {
	var rej *workflow.Rejection
	if errors.As(err, &rej) {
		return s.reject(rej)
	}
	return err
}
