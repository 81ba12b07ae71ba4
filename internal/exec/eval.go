package exec

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// eval evaluates e against tup, returning nil for a NULL result. Grounded
// on tinySQL's recursive expression evaluator (evalExpr in
// _teacher_orig/internal/engine/exec.go), reworked to switch on plan.Expr's
// Kind tag rather than a type-asserted interface value.
func eval(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (any, error) {
	switch e.Kind {
	case plan.ExprLit:
		return e.Lit, nil
	case plan.ExprAttr:
		i := schema.Find(e.Table, e.Name)
		if i < 0 {
			return nil, bderrSchema(e)
		}
		return tup.Get(i), nil
	case plan.ExprNot:
		v, err := evalBool(e.Operand, schema, tup)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		return !*v, nil
	case plan.ExprCmp:
		return evalCmp(e, schema, tup)
	case plan.ExprLogic:
		return evalLogic(e, schema, tup)
	case plan.ExprArith:
		return evalArith(e, schema, tup)
	default:
		return nil, fmt.Errorf("exec: unknown expression kind %v", e.Kind)
	}
}

// resultType finds the storage type a comparison should use for its
// left-hand side: an attribute reference resolves through the schema (its
// Expr.Type field is left unset by the Attr constructor), anything else
// uses the type already computed when the node was built.
func resultType(e *plan.Expr, schema *types.Schema) types.ColType {
	if e.Kind == plan.ExprAttr {
		if i := schema.Find(e.Table, e.Name); i >= 0 {
			return schema.Columns[i].Type
		}
	}
	return e.Type
}

func bderrSchema(e *plan.Expr) error {
	name := e.Name
	if e.Table != "" {
		name = e.Table + "." + e.Name
	}
	return fmt.Errorf("exec: unknown column %q", name)
}

// evalBool evaluates e and requires a bool-or-nil result.
func evalBool(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (*bool, error) {
	v, err := eval(e, schema, tup)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("exec: expected boolean expression, got %T", v)
	}
	return &b, nil
}

// evalCmp implements SQL three-valued comparison: any NULL operand makes
// the comparison NULL, which EvalPredicate treats as false (// Selection: "any comparison involving null yields false").
func evalCmp(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (any, error) {
	l, err := eval(e.Left, schema, tup)
	if err != nil {
		return nil, err
	}
	r, err := eval(e.Right, schema, tup)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	c := types.Compare(resultType(e.Left, schema), l, r)
	switch e.CmpOp {
	case plan.CmpEq:
		return c == 0, nil
	case plan.CmpNe:
		return c != 0, nil
	case plan.CmpLt:
		return c < 0, nil
	case plan.CmpLe:
		return c <= 0, nil
	case plan.CmpGt:
		return c > 0, nil
	case plan.CmpGe:
		return c >= 0, nil
	default:
		return nil, fmt.Errorf("exec: unknown comparison operator %v", e.CmpOp)
	}
}

func evalLogic(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (any, error) {
	l, err := evalBool(e.Left, schema, tup)
	if err != nil {
		return nil, err
	}
	r, err := evalBool(e.Right, schema, tup)
	if err != nil {
		return nil, err
	}
	switch e.LogicOp {
	case plan.LogicAnd:
		if (l != nil && !*l) || (r != nil && !*r) {
			return false, nil
		}
		if l == nil || r == nil {
			return nil, nil
		}
		return true, nil
	case plan.LogicOr:
		if (l != nil && *l) || (r != nil && *r) {
			return true, nil
		}
		if l == nil || r == nil {
			return nil, nil
		}
		return false, nil
	default:
		return nil, fmt.Errorf("exec: unknown logical operator %v", e.LogicOp)
	}
}

func evalArith(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (any, error) {
	l, err := eval(e.Left, schema, tup)
	if err != nil {
		return nil, err
	}
	r, err := eval(e.Right, schema, tup)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("exec: arithmetic on non-numeric operands %T, %T", l, r)
	}
	var out float64
	switch e.ArithOp {
	case plan.ArithAdd:
		out = lf + rf
	case plan.ArithSub:
		out = lf - rf
	case plan.ArithMul:
		out = lf * rf
	case plan.ArithDiv:
		if rf == 0 {
			return nil, fmt.Errorf("exec: division by zero")
		}
		out = lf / rf
	default:
		return nil, fmt.Errorf("exec: unknown arithmetic operator %v", e.ArithOp)
	}
	return castResult(out, e.Type), nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func castResult(f float64, t types.ColType) any {
	switch t {
	case types.Int32:
		return int32(f)
	case types.Int64:
		return int64(f)
	default:
		return f
	}
}

// EvalPredicate evaluates a Selection predicate, collapsing NULL to false
// under the three-valued-to-boolean rule.
func EvalPredicate(e *plan.Expr, schema *types.Schema, tup *types.Tuple) (bool, error) {
	b, err := evalBool(e, schema, tup)
	if err != nil {
		return false, err
	}
	return b != nil && *b, nil
}
