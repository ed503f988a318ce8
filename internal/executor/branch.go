package executor

import (
	"context"
	"fmt"

	"github.com/quantsight/flowcanvas/internal/expr"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Branch evaluates a branch node's condition expression against its
// resolved inputs and reports which outgoing handle fires.
type Branch struct{}

func NewBranch() *Branch { return &Branch{} }

func (b *Branch) Type() workflow.NodeType { return workflow.NodeBranch }

func (b *Branch) Execute(ctx context.Context, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	raw, _ := node.Data.Config["expression"].(string)
	if raw == "" {
		return nil, fmt.Errorf("branch node %s: expression is required", node.ID)
	}
	compiled, err := expr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("branch node %s: %w", node.ID, err)
	}
	result, err := expr.Evaluate(compiled, inputs)
	if err != nil {
		return nil, fmt.Errorf("branch node %s: %w", node.ID, err)
	}
	handle := "false"
	if result {
		handle = "true"
	}
	return map[string]any{
		"result":     result,
		"expression": raw,
		"handle":     handle,
	}, nil
}
