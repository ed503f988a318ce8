package workflow

import "math"

// NodeType discriminates the closed set of operation kinds a node can have.
// The type is fixed at creation; changing a node's semantics means deleting
// it and adding a new node.
type NodeType string

const (
	NodeStart       NodeType = "start"
	NodeLLMPrompt   NodeType = "llm-prompt"
	NodeHTTPCall    NodeType = "http-call"
	NodeSQLQuery    NodeType = "sql-query"
	NodeSubWorkflow NodeType = "sub-workflow-call"
	NodeBranch      NodeType = "branch"
	NodeOutput      NodeType = "output"
)

// KnownTypes lists every valid node type in declaration order.
var KnownTypes = []NodeType{
	NodeStart,
	NodeLLMPrompt,
	NodeHTTPCall,
	NodeSQLQuery,
	NodeSubWorkflow,
	NodeBranch,
	NodeOutput,
}

// Known reports whether t is one of the closed node type set.
func (t NodeType) Known() bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Position is a 2-D layout coordinate. Purely presentational; the engine
// defaults it deterministically when absent or malformed on load.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries the user-facing fields of a node plus its open config bag.
// The required keys of Config are determined by the node's type.
type NodeData struct {
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// Node is a typed unit of work in a workflow graph.
type Node struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	Position *Position `json:"position,omitempty"`
	Data     NodeData  `json:"data"`
}

// Edge is a directed precedence relation between two nodes. SourceHandle and
// TargetHandle discriminate sub-ports on multi-output nodes (branch nodes);
// empty means the single default port.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// DataSource is an external-resource reference usable by any node as a
// global variable. Deduplicated by ID within a definition.
type DataSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Definition is the unit persisted and loaded as a whole.
type Definition struct {
	ID          string       `json:"id,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Edges       []Edge       `json:"edges"`
	DataSources []DataSource `json:"dataSources,omitempty"`
}

// Clone returns a deep copy: mutating the copy (including node config bags)
// never touches the original.
func (d Definition) Clone() Definition {
	out := Definition{ID: d.ID}
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		for i, n := range d.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if d.Edges != nil {
		out.Edges = make([]Edge, len(d.Edges))
		copy(out.Edges, d.Edges)
	}
	if d.DataSources != nil {
		out.DataSources = make([]DataSource, len(d.DataSources))
		copy(out.DataSources, d.DataSources)
	}
	return out
}

// Clone deep-copies a node, including its config bag.
func (n Node) Clone() Node {
	out := n
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	out.Data.Config = CloneConfig(n.Data.Config)
	return out
}

// CloneConfig deep-copies a config bag. Nested maps and slices are copied;
// scalar values are shared (they are immutable after JSON decode).
func CloneConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneConfig(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Node returns the node with the given id, or nil.
func (d Definition) Node(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil.
func (d Definition) Edge(id string) *Edge {
	for i := range d.Edges {
		if d.Edges[i].ID == id {
			return &d.Edges[i]
		}
	}
	return nil
}

// valid reports whether a position is usable as-is.
func (p *Position) valid() bool {
	if p == nil {
		return false
	}
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
