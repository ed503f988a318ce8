package validate

import (
	"fmt"
	"strings"

	"github.com/quantsight/flowcanvas/internal/expr"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// SchemaResult is the outcome of checking a node's config against its
// type's required-field table. Errors are field-level messages returned
// verbatim to the caller for display.
type SchemaResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateConfig checks required fields for the given node type. It runs
// when a node is first added and whenever its config is edited; a failure
// blocks the mutation so an invalid config is never partially applied.
func (p Policy) ValidateConfig(t workflow.NodeType, cfg map[string]any) SchemaResult {
	res := SchemaResult{IsValid: true, Errors: []string{}}
	if !t.Known() {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf("unknown node type %q", t))
		return res
	}

	for _, group := range p.typePolicy(t).Required {
		if satisfied(cfg, group) {
			continue
		}
		res.IsValid = false
		if len(group) == 1 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s is required", group[0]))
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("one of %s is required", strings.Join(group, ", ")))
		}
	}

	// Branch conditions must parse; a syntax error caught here is a config
	// error the user can fix, not a runtime failure.
	if t == workflow.NodeBranch {
		if raw, okField := configString(cfg, "expression"); okField {
			if _, err := expr.Parse(raw); err != nil {
				res.IsValid = false
				res.Errors = append(res.Errors, fmt.Sprintf("expression: %s", err))
			}
		}
	}
	return res
}

// satisfied reports whether at least one key in the group is present with a
// non-empty value.
func satisfied(cfg map[string]any, group []string) bool {
	for _, key := range group {
		v, present := cfg[key]
		if !present || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

func configString(cfg map[string]any, key string) (string, bool) {
	v, present := cfg[key]
	if !present {
		return "", false
	}
	s, isStr := v.(string)
	if !isStr || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
