package graph

import "github.com/quantsight/flowcanvas/internal/workflow"

// CycleReport is the output of cycle detection. Cycles holds one ordered
// node-id path per detected cycle, each closed by repeating the entry node.
type CycleReport struct {
	HasCycles bool       `json:"hasCycles"`
	Cycles    [][]string `json:"cycles"`
}

// DetectCycles runs a depth-first traversal from every not-yet-visited node,
// keeping a recursion stack. An edge into a node already on the stack closes
// a cycle; the reported path is the stack slice from that node's first
// occurrence through the current node, plus the re-entered node itself.
//
// Nodes are visited in input-list order and each node's outgoing edges in
// edge-list order, so reports are deterministic for a given input. O(V+E).
func DetectCycles(nodes []workflow.Node, edges []workflow.Edge) CycleReport {
	report := CycleReport{Cycles: [][]string{}}
	if len(nodes) <= 1 || len(edges) == 0 {
		return report
	}

	// Adjacency in edge-list order.
	adjacent := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
	}

	visited := make(map[string]bool, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, next := range adjacent[id] {
			if onStack[next] {
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start+1)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, next)
				report.Cycles = append(report.Cycles, cycle)
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
	}

	for _, n := range nodes {
		if !visited[n.ID] {
			visit(n.ID)
		}
	}

	report.HasCycles = len(report.Cycles) > 0
	return report
}
