package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/types"
)

// lowerExpr converts one internal/sql expression node into the
// corresponding plan.Expr, resolving attribute references and literal
// types against schema. schema is the schema of the node this expression
// will be attached to (a Selection's child schema, a JOIN's concatenated
// schema, and so on).
func lowerExpr(e sql.Expr, schema *types.Schema) (*plan.Expr, error) {
	switch x := e.(type) {
	case *sql.VarRef:
		i := schema.Find(x.Table, x.Name)
		if i < 0 {
			name := x.Name
			if x.Table != "" {
				name = x.Table + "." + x.Name
			}
			return nil, fmt.Errorf("planbuild: unknown column %q", name)
		}
		return plan.Attr(schema.Terms[i].Table, schema.Terms[i].Name), nil

	case *sql.Literal:
		return literalExpr(x.Val), nil

	case *sql.Unary:
		switch x.Op {
		case "NOT":
			operand, err := lowerExpr(x.Expr, schema)
			if err != nil {
				return nil, err
			}
			return plan.Not(operand), nil
		case "-":
			operand, err := lowerExpr(x.Expr, schema)
			if err != nil {
				return nil, err
			}
			zero := plan.Lit(zeroOf(resultTypeOf(operand, schema)), resultTypeOf(operand, schema))
			return plan.Arith(plan.ArithSub, zero, operand, resultTypeOf(operand, schema)), nil
		case "+":
			return lowerExpr(x.Expr, schema)
		default:
			return nil, fmt.Errorf("planbuild: unsupported unary operator %q", x.Op)
		}

	case *sql.Binary:
		left, err := lowerExpr(x.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(x.Right, schema)
		if err != nil {
			return nil, err
		}
		return lowerBinary(x.Op, left, right, schema)

	case *sql.IsNull:
		return nil, fmt.Errorf("planbuild: IS [NOT] NULL predicates are not supported")

	case *sql.FuncCall:
		return nil, fmt.Errorf("planbuild: aggregate %s() is only valid as a top-level select item", x.Name)

	default:
		return nil, fmt.Errorf("planbuild: unsupported expression %T", e)
	}
}

func lowerBinary(op string, left, right *plan.Expr, schema *types.Schema) (*plan.Expr, error) {
	switch op {
	case "=":
		return plan.Cmp(plan.CmpEq, left, right), nil
	case "!=", "<>":
		return plan.Cmp(plan.CmpNe, left, right), nil
	case "<":
		return plan.Cmp(plan.CmpLt, left, right), nil
	case "<=":
		return plan.Cmp(plan.CmpLe, left, right), nil
	case ">":
		return plan.Cmp(plan.CmpGt, left, right), nil
	case ">=":
		return plan.Cmp(plan.CmpGe, left, right), nil
	case "AND":
		return plan.Logic(plan.LogicAnd, left, right), nil
	case "OR":
		return plan.Logic(plan.LogicOr, left, right), nil
	case "+", "-", "*", "/":
		arithOp := map[string]plan.ArithOp{"+": plan.ArithAdd, "-": plan.ArithSub, "*": plan.ArithMul, "/": plan.ArithDiv}[op]
		resultType := arithResultType(resultTypeOf(left, schema), resultTypeOf(right, schema))
		return plan.Arith(arithOp, left, right, resultType), nil
	default:
		return nil, fmt.Errorf("planbuild: unsupported binary operator %q", op)
	}
}

// resultTypeOf mirrors exec.resultType: an attribute reference resolves
// through schema, anything else carries its own Type field.
func resultTypeOf(e *plan.Expr, schema *types.Schema) types.ColType {
	if e.Kind == plan.ExprAttr {
		if i := schema.Find(e.Table, e.Name); i >= 0 {
			return schema.Columns[i].Type
		}
	}
	return e.Type
}

// arithResultType widens Int32 to Int64 and anything mixed with Double to
// Double, mirroring the promotion tinySQL's tuple accessors apply
// transparently between int/int32/int64/float64.
func arithResultType(a, b types.ColType) types.ColType {
	if a == types.Double || b == types.Double {
		return types.Double
	}
	if a == types.Int64 || b == types.Int64 {
		return types.Int64
	}
	return types.Int32
}

func zeroOf(t types.ColType) any {
	if t == types.Double {
		return float64(0)
	}
	if t == types.Int64 {
		return int64(0)
	}
	return int32(0)
}

// literalExpr infers a plan.Expr's static type from the parser's Go value
// for that literal: int64 for whole numbers (plan.Expr/types.Tuple accept
// plain Go int/int64 interchangeably), float64 for decimals, and Char for
// strings. BOOL literals (TRUE/FALSE) carry types.Bool directly.
func literalExpr(v any) *plan.Expr {
	switch val := v.(type) {
	case int:
		return plan.Lit(val, types.Int64)
	case int64:
		return plan.Lit(val, types.Int64)
	case float64:
		return plan.Lit(val, types.Double)
	case string:
		return plan.Lit(val, types.Char)
	case bool:
		return plan.Lit(val, types.Bool)
	case nil:
		return plan.Lit(nil, types.Int64)
	default:
		return plan.Lit(val, types.Int64)
	}
}
