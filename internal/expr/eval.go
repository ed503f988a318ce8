package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Evaluate walks the compiled expression against a resolved-inputs bag.
// Field paths step through nested maps (`upstream.output.score`).
func Evaluate(e Expr, inputs map[string]any) (bool, error) {
	switch n := e.(type) {
	case *Logical:
		left, err := Evaluate(n.Left, inputs)
		if err != nil {
			return false, err
		}
		// Short-circuit both operators.
		if n.Op == "AND" && !left {
			return false, nil
		}
		if n.Op == "OR" && left {
			return true, nil
		}
		return Evaluate(n.Right, inputs)
	case *Not:
		v, err := Evaluate(n.Inner, inputs)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *Compare:
		left, err := resolve(n.Left, inputs)
		if err != nil {
			return false, err
		}
		right, err := resolve(n.Right, inputs)
		if err != nil {
			return false, err
		}
		return compare(n.Op, left, right)
	default:
		return false, fmt.Errorf("unknown expression node %T", e)
	}
}

func resolve(op Operand, inputs map[string]any) (any, error) {
	if op.Path == nil {
		return op.Literal, nil
	}
	var cur any = inputs
	for _, seg := range op.Path {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("field %q not found", strings.Join(op.Path, "."))
		}
		v, present := m[seg]
		if !present {
			return nil, fmt.Errorf("field %q not found", strings.Join(op.Path, "."))
		}
		cur = v
	}
	return cur, nil
}

func compare(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case ">", ">=", "<", "<=":
		lf, lok := asFloat(left)
		rf, rok := asFloat(right)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s requires numeric operands, got %T and %T", op, left, right)
		}
		switch op {
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	case "contains":
		ls, isStr := left.(string)
		if !isStr {
			return false, fmt.Errorf("contains requires a string left operand, got %T", left)
		}
		return strings.Contains(ls, fmt.Sprintf("%v", right)), nil
	case "matches":
		ls, lok := left.(string)
		pattern, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("matches requires string operands, got %T and %T", left, right)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		return re.MatchString(ls), nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

func equal(left, right any) bool {
	if lf, lok := asFloat(left); lok {
		if rf, rok := asFloat(right); rok {
			return math.Abs(lf-rf) < 1e-9
		}
	}
	if lb, isBool := left.(bool); isBool {
		rb, rok := right.(bool)
		return rok && lb == rb
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
