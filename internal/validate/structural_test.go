package validate_test

import (
	"reflect"
	"testing"

	"github.com/quantsight/flowcanvas/internal/validate"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

func node(id string, t workflow.NodeType) workflow.Node {
	return workflow.Node{ID: id, Type: t}
}

func edge(src, dst string) workflow.Edge {
	return workflow.Edge{ID: src + "-" + dst, Source: src, Target: dst}
}

func TestValidateNodeAddition_SecondStartRejected(t *testing.T) {
	pol := validate.DefaultPolicy()
	cases := []struct {
		name  string
		nodes []workflow.Node
		edges []workflow.Edge
	}{
		{"start alone", []workflow.Node{node("s", workflow.NodeStart)}, nil},
		{
			"start in a larger graph",
			[]workflow.Node{node("s", workflow.NodeStart), node("h", workflow.NodeHTTPCall)},
			[]workflow.Edge{edge("s", "h")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := pol.ValidateNodeAddition(workflow.NodeStart, tc.nodes, tc.edges)
			if res.IsValid {
				t.Error("second start node should be rejected regardless of graph shape")
			}
			if res.Message == "" {
				t.Error("rejection should carry a message")
			}
		})
	}
}

func TestValidateNodeAddition_AllowsNonSingletons(t *testing.T) {
	pol := validate.DefaultPolicy()
	existing := []workflow.Node{node("h1", workflow.NodeHTTPCall)}
	if res := pol.ValidateNodeAddition(workflow.NodeHTTPCall, existing, nil); !res.IsValid {
		t.Errorf("second http-call should be accepted: %s", res.Message)
	}
}

func TestValidateNodeAddition_UnknownType(t *testing.T) {
	pol := validate.DefaultPolicy()
	if res := pol.ValidateNodeAddition("mystery", nil, nil); res.IsValid {
		t.Error("unknown type should be rejected")
	}
}

func TestWouldCreateCycle(t *testing.T) {
	ns := []workflow.Node{node("A", workflow.NodeStart), node("B", workflow.NodeHTTPCall)}
	es := []workflow.Edge{edge("A", "B")}

	if !validate.WouldCreateCycle(ns, es, edge("B", "A")) {
		t.Error("B→A on top of A→B must be cycle-creating")
	}
	if validate.WouldCreateCycle(ns, es, workflow.Edge{ID: "e", Source: "A", Target: "B"}) {
		t.Error("parallel edge A→B is not a cycle")
	}
}

func TestWouldCreateCycle_SelfLoop(t *testing.T) {
	ns := []workflow.Node{node("A", workflow.NodeHTTPCall)}
	if !validate.WouldCreateCycle(ns, nil, edge("A", "A")) {
		t.Error("self-loop must always be classified as cycle-creating")
	}
}

func TestValidateEdgeAddition_CycleCarriesPath(t *testing.T) {
	pol := validate.DefaultPolicy()
	def := workflow.Definition{
		Nodes: []workflow.Node{node("A", workflow.NodeStart), node("B", workflow.NodeHTTPCall)},
		Edges: []workflow.Edge{edge("A", "B")},
	}
	rej := pol.ValidateEdgeAddition(def, edge("B", "A"))
	if rej == nil {
		t.Fatal("expected cycle rejection")
	}
	if !reflect.DeepEqual(rej.Cycle, []string{"A", "B", "A"}) {
		t.Errorf("cycle path = %v, want [A B A]", rej.Cycle)
	}
}

func TestValidateEdgeAddition_TerminalSource(t *testing.T) {
	pol := validate.DefaultPolicy()
	def := workflow.Definition{
		Nodes: []workflow.Node{node("out", workflow.NodeOutput), node("h", workflow.NodeHTTPCall)},
	}
	if rej := pol.ValidateEdgeAddition(def, edge("out", "h")); rej == nil {
		t.Error("output node must not act as an edge source")
	}
}

func TestValidateStructure_IsolatedWarnings(t *testing.T) {
	ns := []workflow.Node{
		node("A", workflow.NodeStart),
		node("B", workflow.NodeHTTPCall),
		node("C", workflow.NodeOutput),
	}
	es := []workflow.Edge{edge("A", "B")}

	report := validate.ValidateStructure(ns, es, validate.StructureOptions{})
	if report.HasCycles {
		t.Error("unexpected cycles")
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected 1 isolated warning, got %v", report.Warnings)
	}

	// Brand-new workflows suppress the warning.
	fresh := validate.ValidateStructure(ns, es, validate.StructureOptions{SkipIsolatedForNew: true})
	if len(fresh.Warnings) != 0 {
		t.Errorf("expected no warnings for new workflow, got %v", fresh.Warnings)
	}
}
