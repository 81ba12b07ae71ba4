// Package plan defines the logical plan representation: expression
// operation trees and plan nodes, modeled as tagged variants over a
// shared base rather than runtime polymorphism.
//
// What/How: grounded on tinySQL's internal/engine expression AST
// (Binary/VarRef/Literal in optimizations.go's extractJoinCondition and
// compile.go) which uses interface-typed runtime dispatch; reworked here
// into an explicit Kind tag plus a flat struct carrying every variant's
// fields, so optimizer rules and the executor can switch on Kind instead
// of type-asserting.
package plan

import "github.com/beedb-project/beedb/internal/types"

// ExprKind tags one node of an expression operation tree.
type ExprKind int

const (
	ExprAttr ExprKind = iota // nullary: attribute reference
	ExprLit                  // nullary: literal value
	ExprNot                  // unary
	ExprCmp                  // binary comparison: =, !=, <, <=, >, >=
	ExprLogic                // binary logical: AND, OR
	ExprArith                // binary arithmetic: +, -, *, /
)

// CmpOp enumerates comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Flip returns the operator that holds when an operand swap happens
//: `<` <-> `>`, `<=` <-> `>=`, and
// `=`/`!=` unchanged.
func (op CmpOp) Flip() CmpOp {
	switch op {
	case CmpLt:
		return CmpGt
	case CmpGt:
		return CmpLt
	case CmpLe:
		return CmpGe
	case CmpGe:
		return CmpLe
	default:
		return op
	}
}

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	default:
		return "?"
	}
}

// LogicOp enumerates logical connectives.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// ArithOp enumerates arithmetic operators.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
)

// Expr is one node of an expression operation tree. Every node exposes a
// ResultTerm — the attribute or synthetic name it yields, if any — its
// static Type, and up to two children.
type Expr struct {
	Kind ExprKind

	// ExprAttr
	Table string
	Name  string

	// ExprLit
	Lit any

	// ExprCmp / ExprLogic / ExprArith
	Left, Right *Expr
	CmpOp       CmpOp
	LogicOp     LogicOp
	ArithOp     ArithOp

	// ExprNot
	Operand *Expr

	ResultTerm string
	Type       types.ColType
}

// Attr builds an attribute-reference expression.
func Attr(table, name string) *Expr {
	return &Expr{Kind: ExprAttr, Table: table, Name: name, ResultTerm: name}
}

// Lit builds a literal-value expression.
func Lit(v any, t types.ColType) *Expr {
	return &Expr{Kind: ExprLit, Lit: v, Type: t}
}

// Cmp builds a binary comparison expression.
func Cmp(op CmpOp, left, right *Expr) *Expr {
	return &Expr{Kind: ExprCmp, CmpOp: op, Left: left, Right: right, Type: types.Bool}
}

// Logic builds a binary logical expression.
func Logic(op LogicOp, left, right *Expr) *Expr {
	return &Expr{Kind: ExprLogic, LogicOp: op, Left: left, Right: right, Type: types.Bool}
}

// Arith builds a binary arithmetic expression.
func Arith(op ArithOp, left, right *Expr, resultType types.ColType) *Expr {
	return &Expr{Kind: ExprArith, ArithOp: op, Left: left, Right: right, Type: resultType}
}

// Not builds a unary negation expression.
func Not(operand *Expr) *Expr {
	return &Expr{Kind: ExprNot, Operand: operand, Type: types.Bool}
}

// AttrRefs collects every attribute reference appearing anywhere in e,
// used by PredicatePushDown's attribute-availability test.
func (e *Expr) AttrRefs() []types.AttrRef {
	var out []types.AttrRef
	e.walkAttrs(&out)
	return out
}

func (e *Expr) walkAttrs(out *[]types.AttrRef) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprAttr:
		*out = append(*out, types.AttrRef{Table: e.Table, Name: e.Name})
	case ExprNot:
		e.Operand.walkAttrs(out)
	default:
		e.Left.walkAttrs(out)
		e.Right.walkAttrs(out)
	}
}

// Clone returns a deep copy of the expression tree.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Left = e.Left.Clone()
	cp.Right = e.Right.Clone()
	cp.Operand = e.Operand.Clone()
	return &cp
}

// IsAttrEqAttr reports whether e is a comparison between two bare
// attribute references, returning them and the operator if so — the
// shape CrossProductToJoin looks for.
func (e *Expr) IsAttrEqAttr() (left, right types.AttrRef, op CmpOp, ok bool) {
	if e == nil || e.Kind != ExprCmp {
		return
	}
	if e.Left == nil || e.Right == nil || e.Left.Kind != ExprAttr || e.Right.Kind != ExprAttr {
		return
	}
	return types.AttrRef{Table: e.Left.Table, Name: e.Left.Name},
		types.AttrRef{Table: e.Right.Table, Name: e.Right.Name}, e.CmpOp, true
}

// IsAttrOpLiteral reports whether e is `attribute OP literal`, the shape
// IndexScanSubstitution looks for.
func (e *Expr) IsAttrOpLiteral() (attr types.AttrRef, op CmpOp, lit any, ok bool) {
	if e == nil || e.Kind != ExprCmp {
		return
	}
	if e.Left != nil && e.Left.Kind == ExprAttr && e.Right != nil && e.Right.Kind == ExprLit {
		return types.AttrRef{Table: e.Left.Table, Name: e.Left.Name}, e.CmpOp, e.Right.Lit, true
	}
	return
}

// SplitConjuncts flattens a tree of ExprLogic(AND, ...) nodes into its
// leaf conjuncts, used by IndexScanSubstitution's predicate split.
func SplitConjuncts(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	if e.Kind == ExprLogic && e.LogicOp == LogicAnd {
		return append(SplitConjuncts(e.Left), SplitConjuncts(e.Right)...)
	}
	return []*Expr{e}
}

// JoinConjuncts builds an ExprLogic(AND, ...) tree from conjuncts,
// inverse of SplitConjuncts. Panics on an empty slice.
func JoinConjuncts(conjuncts []*Expr) *Expr {
	if len(conjuncts) == 0 {
		panic("plan: JoinConjuncts called with no conjuncts")
	}
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		out = Logic(LogicAnd, out, c)
	}
	return out
}
