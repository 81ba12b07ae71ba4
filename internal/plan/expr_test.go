package plan

import (
	"testing"

	"github.com/beedb-project/beedb/internal/types"
)

func TestCmpOp_Flip(t *testing.T) {
	cases := map[CmpOp]CmpOp{
		CmpLt: CmpGt,
		CmpGt: CmpLt,
		CmpLe: CmpGe,
		CmpGe: CmpLe,
		CmpEq: CmpEq,
		CmpNe: CmpNe,
	}
	for op, want := range cases {
		if got := op.Flip(); got != want {
			t.Fatalf("%v.Flip() = %v, want %v", op, got, want)
		}
	}
}

func TestExpr_AttrRefs(t *testing.T) {
	e := Logic(LogicAnd,
		Cmp(CmpEq, Attr("r", "a"), Lit(int32(5), types.Int32)),
		Cmp(CmpLt, Attr("s", "b"), Attr("r", "c")),
	)
	refs := e.AttrRefs()
	if len(refs) != 3 {
		t.Fatalf("expected 3 attribute refs, got %d: %+v", len(refs), refs)
	}
}

func TestExpr_IsAttrEqAttr(t *testing.T) {
	e := Cmp(CmpEq, Attr("r", "a"), Attr("s", "a"))
	left, right, op, ok := e.IsAttrEqAttr()
	if !ok || op != CmpEq || left.Table != "r" || right.Table != "s" {
		t.Fatalf("expected attr=attr match, got %+v %+v %v %v", left, right, op, ok)
	}

	notMatch := Cmp(CmpEq, Attr("r", "a"), Lit(int32(1), types.Int32))
	if _, _, _, ok := notMatch.IsAttrEqAttr(); ok {
		t.Fatal("expected no match for attr=literal")
	}
}

func TestExpr_IsAttrOpLiteral(t *testing.T) {
	e := Cmp(CmpEq, Attr("t", "id"), Lit(int32(42), types.Int32))
	attr, op, lit, ok := e.IsAttrOpLiteral()
	if !ok || op != CmpEq || attr.Name != "id" || lit != int32(42) {
		t.Fatalf("expected attr-op-literal match, got %+v %v %v %v", attr, op, lit, ok)
	}
}

func TestSplitJoinConjuncts_RoundTrip(t *testing.T) {
	a := Cmp(CmpEq, Attr("t", "a"), Lit(int32(1), types.Int32))
	b := Cmp(CmpEq, Attr("t", "b"), Lit(int32(2), types.Int32))
	c := Cmp(CmpEq, Attr("t", "c"), Lit(int32(3), types.Int32))
	joined := JoinConjuncts([]*Expr{a, b, c})
	split := SplitConjuncts(joined)
	if len(split) != 3 {
		t.Fatalf("expected 3 conjuncts, got %d", len(split))
	}
}
