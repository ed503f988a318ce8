// Package impact computes the blast radius of deleting a node and rewrites
// dangling textual references to it in the rest of the graph.
package impact

import (
	"fmt"
	"regexp"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Sentinel replaces references to a deleted node in remaining config text.
const Sentinel = "{deleted}"

// Impact describes the nodes and edges structurally affected by removing a
// node. The caller presents the counts for confirmation before Apply.
type Impact struct {
	AffectedNodes   []string `json:"affectedNodes"`
	AffectedEdges   []string `json:"affectedEdges"`
	UpstreamNodes   []string `json:"upstreamNodes"`
	DownstreamNodes []string `json:"downstreamNodes"`
}

// Analyze computes the impact of removing nodeID. AffectedEdges is every
// edge touching the node; upstream and downstream are the distinct
// neighbors on each side; AffectedNodes is the distinct set of neighbors
// whose connections change. Pure: no mutation, no side effects.
func Analyze(nodeID string, nodes []workflow.Node, edges []workflow.Edge) Impact {
	im := Impact{
		AffectedNodes:   []string{},
		AffectedEdges:   []string{},
		UpstreamNodes:   []string{},
		DownstreamNodes: []string{},
	}
	seenUp := make(map[string]bool)
	seenDown := make(map[string]bool)
	seenAffected := make(map[string]bool)

	for _, e := range edges {
		if e.Source != nodeID && e.Target != nodeID {
			continue
		}
		im.AffectedEdges = append(im.AffectedEdges, e.ID)
		if e.Target == nodeID && e.Source != nodeID && !seenUp[e.Source] {
			seenUp[e.Source] = true
			im.UpstreamNodes = append(im.UpstreamNodes, e.Source)
		}
		if e.Source == nodeID && e.Target != nodeID && !seenDown[e.Target] {
			seenDown[e.Target] = true
			im.DownstreamNodes = append(im.DownstreamNodes, e.Target)
		}
	}
	for _, id := range append(append([]string{}, im.UpstreamNodes...), im.DownstreamNodes...) {
		if !seenAffected[id] {
			seenAffected[id] = true
			im.AffectedNodes = append(im.AffectedNodes, id)
		}
	}
	return im
}

// Apply removes the node and its touching edges, then rewrites textual
// references to it ("{<id>}" or "{<id>.field}") in every remaining node's
// string config values to the sentinel placeholder. The rewrite is pure
// pattern substitution: text that does not match is left untouched, and the
// sentinel itself never matches again, so a second Apply with the same id is
// a no-op.
func Apply(nodeID string, nodes []workflow.Node, edges []workflow.Edge) ([]workflow.Node, []workflow.Edge) {
	re := referencePattern(nodeID)

	outNodes := make([]workflow.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == nodeID {
			continue
		}
		kept := n.Clone()
		kept.Data.Config = rewriteConfig(kept.Data.Config, re)
		outNodes = append(outNodes, kept)
	}

	outEdges := make([]workflow.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Source == nodeID || e.Target == nodeID {
			continue
		}
		outEdges = append(outEdges, e)
	}
	return outNodes, outEdges
}

// referencePattern matches "{id}" and "{id.accessor.path}".
func referencePattern(nodeID string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`\{%s(\.[^{}]+)?\}`, regexp.QuoteMeta(nodeID)))
}

func rewriteConfig(cfg map[string]any, re *regexp.Regexp) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = rewriteValue(v, re)
	}
	return out
}

func rewriteValue(v any, re *regexp.Regexp) any {
	switch val := v.(type) {
	case string:
		return re.ReplaceAllString(val, Sentinel)
	case map[string]any:
		return rewriteConfig(val, re)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = rewriteValue(item, re)
		}
		return out
	default:
		return v
	}
}
