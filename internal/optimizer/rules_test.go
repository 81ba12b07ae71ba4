package optimizer

import (
	"testing"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

func schema(table string, cols ...string) *types.Schema {
	columns := make([]types.Column, len(cols))
	terms := make([]types.Term, len(cols))
	for i, c := range cols {
		columns[i] = types.Column{ID: i, Name: c, Type: types.Int32}
		terms[i] = types.Term{Table: table, Name: c}
	}
	return types.NewSchema(columns, terms)
}

type fakeIndexCatalog struct {
	byTableCol map[string]IndexCapability
}

func (f fakeIndexCatalog) IndexFor(table, col string) (IndexCapability, bool) {
	c, ok := f.byTableCol[table+"."+col]
	return c, ok
}

func TestOptimize_PredicatePushDownThroughCrossProduct(t *testing.T) {
	rSchema := schema("r", "a", "b")
	sSchema := schema("s", "x", "y")

	scanR := &plan.Node{Kind: plan.NodeScan, TableName: "r", Schema: rSchema}
	scanS := &plan.Node{Kind: plan.NodeScan, TableName: "s", Schema: sSchema}
	cross := &plan.Node{Kind: plan.NodeCrossProduct, Left: scanR, Right: scanS, Schema: rSchema.Concat(sSchema)}
	sel := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      cross,
		Schema:    cross.Schema,
		Predicate: plan.Cmp(plan.CmpEq, plan.Attr("r", "a"), plan.Lit(int32(5), types.Int32)),
	}

	out := Optimize(sel, nil)

	if out.Kind != plan.NodeCrossProduct {
		t.Fatalf("expected pushed-down selection to leave a bare CrossProduct at root, got %v", out.Kind)
	}
	if out.Left.Kind != plan.NodeSelection {
		t.Fatalf("expected Selection pushed onto left child, got %v", out.Left.Kind)
	}
	if out.Left.Left.Kind != plan.NodeScan || out.Left.Left.TableName != "r" {
		t.Fatalf("expected pushed selection directly above scan of r, got %+v", out.Left.Left)
	}
}

func TestOptimize_IndexScanSubstitution(t *testing.T) {
	tSchema := schema("t", "id", "name")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	sel := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      scan,
		Schema:    tSchema,
		Predicate: plan.Cmp(plan.CmpEq, plan.Attr("t", "id"), plan.Lit(int32(42), types.Int32)),
	}

	idx := fakeIndexCatalog{byTableCol: map[string]IndexCapability{
		"t.id": {Name: "t_id_idx", Unique: true},
	}}

	out := Optimize(sel, idx)

	if out.Kind != plan.NodeIndexScan {
		t.Fatalf("expected residual-free Selection to be fully replaced by IndexScan, got %v", out.Kind)
	}
	if out.IndexName != "t_id_idx" || len(out.KeyRanges) != 1 || out.KeyRanges[0].Op != plan.CmpEq {
		t.Fatalf("unexpected index scan shape: %+v", out)
	}
}

func TestOptimize_IndexScanSubstitution_MultiFragmentSameColumn(t *testing.T) {
	tSchema := schema("t", "age", "name")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	sel := &plan.Node{
		Kind:   plan.NodeSelection,
		Left:   scan,
		Schema: tSchema,
		Predicate: plan.Logic(plan.LogicAnd,
			plan.Cmp(plan.CmpGt, plan.Attr("t", "age"), plan.Lit(int32(5), types.Int32)),
			plan.Cmp(plan.CmpLt, plan.Attr("t", "age"), plan.Lit(int32(100), types.Int32)),
		),
	}

	idx := fakeIndexCatalog{byTableCol: map[string]IndexCapability{
		"t.age": {Name: "t_age_idx", Range: true},
	}}

	out := Optimize(sel, idx)

	if out.Kind != plan.NodeIndexScan {
		t.Fatalf("expected both same-column bounds to fold into one residual-free IndexScan, got %v", out.Kind)
	}
	if out.IndexName != "t_age_idx" || len(out.KeyRanges) != 2 {
		t.Fatalf("unexpected index scan shape: %+v", out)
	}
	for _, kr := range out.KeyRanges {
		if kr.Column != "age" {
			t.Fatalf("expected every fragment to carry the age column, got %+v", kr)
		}
	}
	var sawGt, sawLt bool
	for _, kr := range out.KeyRanges {
		switch kr.Op {
		case plan.CmpGt:
			sawGt = true
		case plan.CmpLt:
			sawLt = true
		}
	}
	if !sawGt || !sawLt {
		t.Fatalf("expected both the > and < fragments to survive into KeyRanges, got %+v", out.KeyRanges)
	}
}

func TestOptimize_IndexScanSubstitution_MultiColumn(t *testing.T) {
	tSchema := schema("t", "age", "name")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	sel := &plan.Node{
		Kind:   plan.NodeSelection,
		Left:   scan,
		Schema: tSchema,
		Predicate: plan.Logic(plan.LogicAnd,
			plan.Cmp(plan.CmpGt, plan.Attr("t", "age"), plan.Lit(int32(5), types.Int32)),
			plan.Cmp(plan.CmpEq, plan.Attr("t", "name"), plan.Lit("bob", types.Char)),
		),
	}

	idx := fakeIndexCatalog{byTableCol: map[string]IndexCapability{
		"t.age":  {Name: "t_age_idx", Range: true},
		"t.name": {Name: "t_name_idx", Unique: true},
	}}

	out := Optimize(sel, idx)

	// age is the first column encountered in predicate order, so it is the
	// one substituted into the IndexScan; name's fragment must survive as a
	// residual Selection rather than being folded into the same IndexScan
	// or dropped outright.
	if out.Kind != plan.NodeSelection {
		t.Fatalf("expected a residual Selection over the IndexScan for the non-chosen column, got %v", out.Kind)
	}
	if out.Left.Kind != plan.NodeIndexScan {
		t.Fatalf("expected IndexScan beneath the residual Selection, got %v", out.Left.Kind)
	}
	if out.Left.IndexName != "t_age_idx" || len(out.Left.KeyRanges) != 1 || out.Left.KeyRanges[0].Column != "age" {
		t.Fatalf("expected only the age fragment to become the IndexScan, got %+v", out.Left)
	}
	refs := out.Predicate.AttrRefs()
	if len(refs) != 1 || refs[0].Name != "name" {
		t.Fatalf("expected the residual predicate to reference only name, got %+v", refs)
	}
}

func TestOptimize_CrossProductAndHashJoinSubstitution(t *testing.T) {
	rSchema := schema("r", "a")
	sSchema := schema("s", "a")
	scanR := &plan.Node{Kind: plan.NodeScan, TableName: "r", Schema: rSchema}
	scanS := &plan.Node{Kind: plan.NodeScan, TableName: "s", Schema: sSchema}
	cross := &plan.Node{Kind: plan.NodeCrossProduct, Left: scanR, Right: scanS, Schema: rSchema.Concat(sSchema)}
	sel := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      cross,
		Schema:    cross.Schema,
		Predicate: plan.Cmp(plan.CmpEq, plan.Attr("r", "a"), plan.Attr("s", "a")),
	}

	out := Optimize(sel, nil)

	if out.Kind != plan.NodeHashJoin {
		t.Fatalf("expected CrossProduct+Selection to become a HashJoin, got %v", out.Kind)
	}
}

func TestOptimize_MergeSelection(t *testing.T) {
	tSchema := schema("t", "a")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	inner := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      scan,
		Schema:    tSchema,
		Predicate: plan.Cmp(plan.CmpGt, plan.Attr("t", "a"), plan.Lit(int32(1), types.Int32)),
	}
	outer := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      inner,
		Schema:    tSchema,
		Predicate: plan.Cmp(plan.CmpLt, plan.Attr("t", "a"), plan.Lit(int32(100), types.Int32)),
	}

	out := Optimize(outer, nil)

	if out.Kind != plan.NodeSelection {
		t.Fatalf("expected a single merged Selection at root, got %v", out.Kind)
	}
	if out.Left.Kind != plan.NodeScan {
		t.Fatalf("expected nested Selection folded away, got %v", out.Left.Kind)
	}
	if out.Predicate.Kind != plan.ExprLogic {
		t.Fatalf("expected merged predicate to be a conjunction, got %v", out.Predicate.Kind)
	}
}

func TestOptimize_RemoveProjection(t *testing.T) {
	tSchema := schema("t", "a", "b")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	proj := &plan.Node{Kind: plan.NodeProjection, Left: scan, Schema: tSchema}

	out := Optimize(proj, nil)

	if out.Kind != plan.NodeScan {
		t.Fatalf("expected no-op Projection to be removed, got %v", out.Kind)
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	tSchema := schema("t", "id")
	scan := &plan.Node{Kind: plan.NodeScan, TableName: "t", Schema: tSchema}
	sel := &plan.Node{
		Kind:      plan.NodeSelection,
		Left:      scan,
		Schema:    tSchema,
		Predicate: plan.Cmp(plan.CmpEq, plan.Attr("t", "id"), plan.Lit(int32(1), types.Int32)),
	}

	idx := fakeIndexCatalog{byTableCol: map[string]IndexCapability{"t.id": {Name: "t_id_idx"}}}

	once := Optimize(sel, idx)
	twice := Optimize(once, idx)

	if once.Kind != twice.Kind || once.IndexName != twice.IndexName {
		t.Fatalf("optimizer not idempotent: once=%+v twice=%+v", once, twice)
	}
}
