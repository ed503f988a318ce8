// Package graph holds the in-memory workflow graph model and the cycle
// detector. Every operation is pure with respect to its input definition:
// callers get either the accepted next definition or a typed rejection, and
// the previous definition is never mutated. This lets validators run against
// a proposed next state before anything is committed.
package graph

import (
	"fmt"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Index is an arena view over a definition: flat collections plus
// id-to-index maps. Edges stay id-based; nodes are never aliased to each
// other directly.
type Index struct {
	nodes map[string]int
	edges map[string]int
}

// BuildIndex constructs the id lookup maps for a definition.
func BuildIndex(def workflow.Definition) Index {
	ix := Index{
		nodes: make(map[string]int, len(def.Nodes)),
		edges: make(map[string]int, len(def.Edges)),
	}
	for i, n := range def.Nodes {
		ix.nodes[n.ID] = i
	}
	for i, e := range def.Edges {
		ix.edges[e.ID] = i
	}
	return ix
}

// HasNode reports whether a node id exists in the indexed definition.
func (ix Index) HasNode(id string) bool {
	_, ok := ix.nodes[id]
	return ok
}

// AddNode returns a new definition with n appended. Rejects duplicate ids.
func AddNode(def workflow.Definition, n workflow.Node) (workflow.Definition, error) {
	ix := BuildIndex(def)
	if n.ID == "" {
		return def, workflow.StructuralRejection("node id is required")
	}
	if ix.HasNode(n.ID) {
		return def, workflow.StructuralRejection(fmt.Sprintf("node id %q already exists", n.ID))
	}
	next := def.Clone()
	next.Nodes = append(next.Nodes, n.Clone())
	return next, nil
}

// AddEdge returns a new definition with e appended. Both endpoints must
// reference existing nodes. Proposing an edge identical to an existing one
// (same source, target and handles) is an idempotent accept: the input
// definition is returned unchanged.
//
// AddEdge does not run cycle detection; callers check
// validate.WouldCreateCycle against the proposed edge first and must refuse
// the edge wholly if it would close a cycle.
func AddEdge(def workflow.Definition, e workflow.Edge) (workflow.Definition, error) {
	ix := BuildIndex(def)
	if e.ID == "" {
		return def, workflow.StructuralRejection("edge id is required")
	}
	if !ix.HasNode(e.Source) {
		return def, workflow.StructuralRejection(fmt.Sprintf("edge source %q does not exist", e.Source))
	}
	if !ix.HasNode(e.Target) {
		return def, workflow.StructuralRejection(fmt.Sprintf("edge target %q does not exist", e.Target))
	}
	for _, ex := range def.Edges {
		if ex.Source == e.Source && ex.Target == e.Target &&
			ex.SourceHandle == e.SourceHandle && ex.TargetHandle == e.TargetHandle {
			return def, nil // already connected
		}
	}
	if _, dup := ix.edges[e.ID]; dup {
		return def, workflow.StructuralRejection(fmt.Sprintf("edge id %q already exists", e.ID))
	}
	next := def.Clone()
	next.Edges = append(next.Edges, e)
	return next, nil
}

// RemoveNode returns a new definition without the node and without every
// edge touching it (cascade).
func RemoveNode(def workflow.Definition, id string) (workflow.Definition, error) {
	ix := BuildIndex(def)
	if !ix.HasNode(id) {
		return def, workflow.StructuralRejection(fmt.Sprintf("node %q does not exist", id))
	}
	next := def.Clone()
	nodes := next.Nodes[:0]
	for _, n := range next.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	next.Nodes = nodes
	edges := next.Edges[:0]
	for _, e := range next.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	next.Edges = edges
	return next, nil
}

// RemoveEdge returns a new definition without the edge.
func RemoveEdge(def workflow.Definition, id string) (workflow.Definition, error) {
	ix := BuildIndex(def)
	if _, ok := ix.edges[id]; !ok {
		return def, workflow.StructuralRejection(fmt.Sprintf("edge %q does not exist", id))
	}
	next := def.Clone()
	edges := next.Edges[:0]
	for _, e := range next.Edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	next.Edges = edges
	return next, nil
}

// NodePatch is a partial node update. Nil fields are left untouched; a
// non-nil Config replaces the whole bag (never merged, so a failed schema
// validation can discard it atomically). Node type is immutable and has no
// patch field.
type NodePatch struct {
	Label       *string            `json:"label,omitempty"`
	Description *string            `json:"description,omitempty"`
	Position    *workflow.Position `json:"position,omitempty"`
	Config      map[string]any     `json:"config,omitempty"`
}

// UpdateNode returns a new definition with the patch applied to the node.
func UpdateNode(def workflow.Definition, id string, patch NodePatch) (workflow.Definition, error) {
	ix := BuildIndex(def)
	i, ok := ix.nodes[id]
	if !ok {
		return def, workflow.StructuralRejection(fmt.Sprintf("node %q does not exist", id))
	}
	next := def.Clone()
	n := &next.Nodes[i]
	if patch.Label != nil {
		n.Data.Label = *patch.Label
	}
	if patch.Description != nil {
		n.Data.Description = *patch.Description
	}
	if patch.Position != nil {
		p := *patch.Position
		n.Position = &p
	}
	if patch.Config != nil {
		n.Data.Config = workflow.CloneConfig(patch.Config)
	}
	return next, nil
}

// AddDataSource returns a new definition with the data source appended.
// Entries are deduplicated by id: re-adding an existing id is an idempotent
// accept.
func AddDataSource(def workflow.Definition, ds workflow.DataSource) (workflow.Definition, error) {
	if ds.ID == "" {
		return def, workflow.StructuralRejection("data source id is required")
	}
	for _, existing := range def.DataSources {
		if existing.ID == ds.ID {
			return def, nil
		}
	}
	next := def.Clone()
	next.DataSources = append(next.DataSources, ds)
	return next, nil
}
