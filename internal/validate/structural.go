package validate

import (
	"fmt"

	"github.com/quantsight/flowcanvas/internal/graph"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Result is the outcome of a single structural check.
type Result struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

func ok() Result                { return Result{IsValid: true} }
func invalid(msg string) Result { return Result{IsValid: false, Message: msg} }

// ValidateNodeAddition checks whether a node of the given type may be added
// to the current graph. Singleton types (start) are rejected when one
// already exists, regardless of graph shape.
func (p Policy) ValidateNodeAddition(t workflow.NodeType, nodes []workflow.Node, edges []workflow.Edge) Result {
	if !t.Known() {
		return invalid(fmt.Sprintf("unknown node type %q", t))
	}
	if p.typePolicy(t).Singleton {
		for _, n := range nodes {
			if n.Type == t {
				return invalid(fmt.Sprintf("a workflow may contain only one %q node", t))
			}
		}
	}
	return ok()
}

// WouldCreateCycle reports whether adding candidate to the existing edge set
// introduces any cycle. A self-loop is always cycle-creating. Callers must
// check this before committing an edge and refuse it wholly when true.
func WouldCreateCycle(nodes []workflow.Node, edges []workflow.Edge, candidate workflow.Edge) bool {
	if candidate.Source == candidate.Target {
		return true
	}
	proposed := make([]workflow.Edge, 0, len(edges)+1)
	proposed = append(proposed, edges...)
	proposed = append(proposed, candidate)
	return graph.DetectCycles(nodes, proposed).HasCycles
}

// ValidateEdgeAddition runs every pre-commit edge rule: endpoint existence,
// terminal-source policy, and prospective cycle detection. Returns nil when
// the edge may be committed.
func (p Policy) ValidateEdgeAddition(def workflow.Definition, candidate workflow.Edge) *workflow.Rejection {
	ix := graph.BuildIndex(def)
	if !ix.HasNode(candidate.Source) {
		return workflow.StructuralRejection(fmt.Sprintf("edge source %q does not exist", candidate.Source))
	}
	if !ix.HasNode(candidate.Target) {
		return workflow.StructuralRejection(fmt.Sprintf("edge target %q does not exist", candidate.Target))
	}
	if src := def.Node(candidate.Source); src != nil && p.typePolicy(src.Type).Terminal {
		return workflow.StructuralRejection(fmt.Sprintf("%q nodes cannot have outgoing connections", src.Type))
	}
	if WouldCreateCycle(def.Nodes, def.Edges, candidate) {
		proposed := append(append([]workflow.Edge{}, def.Edges...), candidate)
		report := graph.DetectCycles(def.Nodes, proposed)
		var path []string
		if len(report.Cycles) > 0 {
			path = report.Cycles[0]
		} else {
			// Self-loop on a graph the detector considers trivial.
			path = []string{candidate.Source, candidate.Target}
		}
		return workflow.CycleRejection(
			fmt.Sprintf("connecting %s to %s would create a cycle", candidate.Source, candidate.Target),
			path,
		)
	}
	return nil
}

// StructureOptions tunes load-time structure validation.
type StructureOptions struct {
	// SkipIsolatedForNew suppresses isolated-node warnings for a brand-new
	// workflow, where a single just-created node is expected to have no
	// connections yet.
	SkipIsolatedForNew bool
}

// StructureReport is the load-time health report for a whole workflow.
// Warnings are advisory and never block a save.
type StructureReport struct {
	HasCycles bool       `json:"hasCycles"`
	Cycles    [][]string `json:"cycles"`
	Warnings  []string   `json:"warnings"`
}

// ValidateStructure checks a whole workflow at load time: cycle detection
// plus non-fatal warnings for isolated nodes (no incoming and no outgoing
// edges).
func ValidateStructure(nodes []workflow.Node, edges []workflow.Edge, opts StructureOptions) StructureReport {
	cycleReport := graph.DetectCycles(nodes, edges)
	report := StructureReport{
		HasCycles: cycleReport.HasCycles,
		Cycles:    cycleReport.Cycles,
		Warnings:  []string{},
	}

	if opts.SkipIsolatedForNew {
		return report
	}
	connected := make(map[string]bool, len(nodes))
	for _, e := range edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	for _, n := range nodes {
		if !connected[n.ID] {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("node %q (%s) has no connections", n.ID, n.Type))
		}
	}
	return report
}
