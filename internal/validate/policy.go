// Package validate applies graph-level policy rules and per-node-type
// config contracts. All checks run against a proposed next state before
// anything is committed; a failed check discards the proposal in full.
package validate

import "github.com/quantsight/flowcanvas/internal/workflow"

// TypePolicy describes the structural and schema rules for one node type.
type TypePolicy struct {
	// Singleton types may appear at most once per workflow.
	Singleton bool
	// Terminal types may never act as an edge source.
	Terminal bool
	// Required lists groups of config keys; each group is satisfied when at
	// least one of its keys is present and non-empty.
	Required [][]string
}

// Policy is the full per-type rule table, dispatched by node type. The
// default table is built in; deployments can override it from config.
type Policy struct {
	Types map[workflow.NodeType]TypePolicy
}

// DefaultPolicy returns the built-in rule table.
func DefaultPolicy() Policy {
	return Policy{Types: map[workflow.NodeType]TypePolicy{
		workflow.NodeStart: {Singleton: true},
		workflow.NodeLLMPrompt: {
			Required: [][]string{{"promptId", "systemPrompt"}},
		},
		workflow.NodeHTTPCall: {
			Required: [][]string{{"url"}, {"method"}},
		},
		workflow.NodeSQLQuery: {
			Required: [][]string{{"dataSourceId"}, {"queryId"}},
		},
		workflow.NodeSubWorkflow: {
			Required: [][]string{{"workflowId"}},
		},
		workflow.NodeBranch: {
			Required: [][]string{{"expression"}},
		},
		workflow.NodeOutput: {Terminal: true},
	}}
}

// typePolicy returns the rules for t (zero policy for unknown types).
func (p Policy) typePolicy(t workflow.NodeType) TypePolicy {
	return p.Types[t]
}
