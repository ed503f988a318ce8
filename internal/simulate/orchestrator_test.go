package simulate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quantsight/flowcanvas/internal/executor"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// stubExecutor runs a caller-supplied function for a node type.
type stubExecutor struct {
	typ workflow.NodeType
	fn  func(node workflow.Node, inputs map[string]any) (map[string]any, error)
}

func (s stubExecutor) Type() workflow.NodeType { return s.typ }

func (s stubExecutor) Execute(_ context.Context, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	return s.fn(node, inputs)
}

func testDefinition() workflow.Definition {
	return workflow.Definition{
		ID: "wf-sim",
		Nodes: []workflow.Node{
			{ID: "A", Type: workflow.NodeStart, Data: workflow.NodeData{Label: "Start"}},
			{ID: "B", Type: workflow.NodeHTTPCall, Data: workflow.NodeData{Label: "Fetch"}},
			{ID: "C", Type: workflow.NodeOutput, Data: workflow.NodeData{Label: "Out"}},
		},
		Edges: []workflow.Edge{
			{ID: "e1", Source: "A", Target: "B"},
			{ID: "e2", Source: "B", Target: "C"},
		},
	}
}

func newTestOrchestrator(t *testing.T, execs ...executor.Executor) *Orchestrator {
	t.Helper()
	reg := executor.NewRegistry()
	for _, e := range execs {
		reg.Register(e)
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := New(ctx, reg, Options{Workers: 2, QueueDepth: 8})
	t.Cleanup(func() {
		o.Shutdown()
		cancel()
	})
	return o
}

func TestCreateSessionStartsPending(t *testing.T) {
	o := newTestOrchestrator(t)
	sid := o.CreateSession(testDefinition())

	results, err := o.Results(sid)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for id, r := range results {
		if r.Status != StatusPending {
			t.Errorf("node %s status = %s, want pending", id, r.Status)
		}
	}
}

func TestExecuteNodeCompleted(t *testing.T) {
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeStart, fn: func(workflow.Node, map[string]any) (map[string]any, error) {
			return map[string]any{"started": true}, nil
		}},
	)
	sid := o.CreateSession(testDefinition())

	res, err := o.ExecuteNode(context.Background(), sid, "A")
	if err != nil {
		t.Fatalf("ExecuteNode: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if res.Output["started"] != true {
		t.Errorf("output = %v", res.Output)
	}

	results, _ := o.Results(sid)
	if results["A"].Status != StatusCompleted {
		t.Errorf("cached status = %s, want completed", results["A"].Status)
	}
}

func TestExecuteNodeFailureDoesNotTouchSiblings(t *testing.T) {
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeStart, fn: func(workflow.Node, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}},
		stubExecutor{typ: workflow.NodeHTTPCall, fn: func(workflow.Node, map[string]any) (map[string]any, error) {
			return nil, errors.New("connection refused")
		}},
	)
	sid := o.CreateSession(testDefinition())

	if _, err := o.ExecuteNode(context.Background(), sid, "A"); err != nil {
		t.Fatalf("ExecuteNode(A): %v", err)
	}
	res, err := o.ExecuteNode(context.Background(), sid, "B")
	if err != nil {
		t.Fatalf("ExecuteNode(B): %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("B status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("B error = %q", res.Error)
	}

	results, _ := o.Results(sid)
	if results["A"].Status != StatusCompleted {
		t.Errorf("A status = %s after B failed, want completed", results["A"].Status)
	}
	if results["C"].Status != StatusPending {
		t.Errorf("C status = %s, want pending", results["C"].Status)
	}
}

func TestExecuteNodeResolvesUpstreamInputs(t *testing.T) {
	var seenInputs map[string]any
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeStart, fn: func(workflow.Node, map[string]any) (map[string]any, error) {
			return map[string]any{"value": float64(7)}, nil
		}},
		stubExecutor{typ: workflow.NodeHTTPCall, fn: func(_ workflow.Node, inputs map[string]any) (map[string]any, error) {
			seenInputs = inputs
			return map[string]any{}, nil
		}},
	)
	sid := o.CreateSession(testDefinition())

	if _, err := o.ExecuteNode(context.Background(), sid, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.ExecuteNode(context.Background(), sid, "B"); err != nil {
		t.Fatal(err)
	}

	up, ok := seenInputs["A"].(map[string]any)
	if !ok {
		t.Fatalf("inputs = %v, want upstream output under key A", seenInputs)
	}
	if up["value"] != float64(7) {
		t.Errorf("upstream value = %v, want 7", up["value"])
	}
}

func TestExecuteNodeNoUpstreamResultYet(t *testing.T) {
	var seenInputs map[string]any
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeHTTPCall, fn: func(_ workflow.Node, inputs map[string]any) (map[string]any, error) {
			seenInputs = inputs
			return map[string]any{}, nil
		}},
	)
	sid := o.CreateSession(testDefinition())

	// B executed before A: upstream is still pending so inputs are empty.
	if _, err := o.ExecuteNode(context.Background(), sid, "B"); err != nil {
		t.Fatal(err)
	}
	if len(seenInputs) != 0 {
		t.Errorf("inputs = %v, want empty", seenInputs)
	}
}

func TestReExecutionOverwrites(t *testing.T) {
	calls := 0
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeStart, fn: func(workflow.Node, map[string]any) (map[string]any, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("transient")
			}
			return map[string]any{"attempt": calls}, nil
		}},
	)
	sid := o.CreateSession(testDefinition())

	first, _ := o.ExecuteNode(context.Background(), sid, "A")
	if first.Status != StatusFailed {
		t.Fatalf("first status = %s, want failed", first.Status)
	}
	second, _ := o.ExecuteNode(context.Background(), sid, "A")
	if second.Status != StatusCompleted {
		t.Fatalf("second status = %s, want completed", second.Status)
	}

	results, _ := o.Results(sid)
	cached := results["A"]
	if cached.Status != StatusCompleted || cached.Error != "" {
		t.Errorf("cached result kept failure: %+v", cached)
	}
	if cached.Output["attempt"] != 2 {
		t.Errorf("cached output = %v, want attempt 2", cached.Output)
	}
}

func TestSessionSnapshotIgnoresLiveEdits(t *testing.T) {
	o := newTestOrchestrator(t,
		stubExecutor{typ: workflow.NodeHTTPCall, fn: func(node workflow.Node, _ map[string]any) (map[string]any, error) {
			return map[string]any{"url": node.Data.Config["url"]}, nil
		}},
	)
	def := testDefinition()
	def.Nodes[1].Data.Config = map[string]any{"url": "https://v1.example.com"}
	sid := o.CreateSession(def)

	// Live edit after the snapshot was taken.
	def.Nodes[1].Data.Config["url"] = "https://v2.example.com"
	def.Nodes = append(def.Nodes, workflow.Node{ID: "D", Type: workflow.NodeOutput})

	res, err := o.ExecuteNode(context.Background(), sid, "B")
	if err != nil {
		t.Fatal(err)
	}
	if res.Output["url"] != "https://v1.example.com" {
		t.Errorf("executed with %v, want the snapshot's config", res.Output["url"])
	}
	if _, err := o.ExecuteNode(context.Background(), sid, "D"); err == nil {
		t.Error("node added after snapshot should not be executable")
	}
}

func TestExecuteNodeUnknownSessionAndNode(t *testing.T) {
	o := newTestOrchestrator(t)
	if _, err := o.ExecuteNode(context.Background(), "nope", "A"); err == nil {
		t.Error("want error for unknown session")
	}
	sid := o.CreateSession(testDefinition())
	if _, err := o.ExecuteNode(context.Background(), sid, "ghost"); err == nil {
		t.Error("want error for node missing from snapshot")
	}
}

func TestExecuteNodeUnregisteredType(t *testing.T) {
	o := newTestOrchestrator(t)
	sid := o.CreateSession(testDefinition())
	res, err := o.ExecuteNode(context.Background(), sid, "A")
	if err != nil {
		t.Fatalf("ExecuteNode: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "no executor registered") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDiscard(t *testing.T) {
	o := newTestOrchestrator(t)
	sid := o.CreateSession(testDefinition())
	o.Discard(sid)
	if _, err := o.Results(sid); err == nil {
		t.Error("discarded session still resolvable")
	}

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, o.CreateSession(testDefinition()))
	}
	o.DiscardAll()
	for _, id := range ids {
		if _, err := o.Results(id); err == nil {
			t.Errorf("session %s survived DiscardAll", id)
		}
	}
}
