package planbuild

import (
	"testing"

	"github.com/beedb-project/beedb/internal/optimizer"
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

type fakeCatalog struct {
	tables  map[string]*record.Table
	indexes map[string]optimizer.IndexCapability
}

func (f *fakeCatalog) Table(name string) (*record.Table, bool) {
	t, ok := f.tables[name]
	return t, ok
}

func (f *fakeCatalog) IndexFor(table, column string) (optimizer.IndexCapability, bool) {
	capability, ok := f.indexes[table+"."+column]
	return capability, ok
}

func newFakeCatalog() *fakeCatalog {
	rSchema := types.NewSchema(
		[]types.Column{{ID: 0, Name: "a", Type: types.Int32}, {ID: 1, Name: "b", Type: types.Int32}},
		[]types.Term{{Table: "r", Name: "a"}, {Table: "r", Name: "b"}},
	)
	sSchema := types.NewSchema(
		[]types.Column{{ID: 0, Name: "a", Type: types.Int32}, {ID: 1, Name: "c", Type: types.Double}},
		[]types.Term{{Table: "s", Name: "a"}, {Table: "s", Name: "c"}},
	)
	return &fakeCatalog{
		tables: map[string]*record.Table{
			"r": {ID: 1, Name: "r", Schema: rSchema, FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
			"s": {ID: 2, Name: "s", Schema: sSchema, FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
		},
		indexes: map[string]optimizer.IndexCapability{},
	}
}

func parseBuild(t *testing.T, stmt string, cat Catalog) *plan.Node {
	t.Helper()
	parsed, err := sql.NewParser(stmt).ParseStatement()
	if err != nil {
		t.Fatalf("parse %q: %v", stmt, err)
	}
	node, err := Build(parsed, cat)
	if err != nil {
		t.Fatalf("build %q: %v", stmt, err)
	}
	return node
}

func TestBuildSelectStarWhereOrderLimit(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "SELECT * FROM r WHERE a > 1 ORDER BY a DESC LIMIT 2 OFFSET 1", cat)

	if node.Kind != plan.NodeLimit {
		t.Fatalf("expected root Limit, got %v", node.Kind)
	}
	if node.Limit != 2 || node.Offset != 1 {
		t.Fatalf("unexpected limit/offset: %+v", node)
	}
	proj := node.Left
	if proj.Kind != plan.NodeProjection {
		t.Fatalf("expected Projection under Limit, got %v", proj.Kind)
	}
	order := proj.Left
	if order.Kind != plan.NodeOrder {
		t.Fatalf("expected Order under Projection, got %v", order.Kind)
	}
	sel := order.Left
	if sel.Kind != plan.NodeSelection {
		t.Fatalf("expected Selection under Order, got %v", sel.Kind)
	}
	if sel.Predicate.Kind != plan.ExprCmp || sel.Predicate.CmpOp != plan.CmpGt {
		t.Fatalf("unexpected predicate: %+v", sel.Predicate)
	}
	if sel.Left.Kind != plan.NodeScan || sel.Left.TableName != "r" {
		t.Fatalf("expected Scan(r) at the bottom, got %+v", sel.Left)
	}
}

func TestBuildSelectExplicitColumnsBecomesArithmetic(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "SELECT a, b FROM r", cat)
	if node.Kind != plan.NodeArithmetic {
		t.Fatalf("expected Arithmetic, got %v", node.Kind)
	}
	if len(node.ArithSpecs) != 2 || !node.ArithSpecs[0].CopyFromChild {
		t.Fatalf("unexpected arith specs: %+v", node.ArithSpecs)
	}
}

func TestBuildSelectJoinLowersToSelectionOverCrossProduct(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "SELECT r.a, s.c FROM r JOIN s ON r.a = s.a", cat)
	arith := node
	if arith.Kind != plan.NodeArithmetic {
		t.Fatalf("expected Arithmetic at root, got %v", arith.Kind)
	}
	sel := arith.Left
	if sel.Kind != plan.NodeSelection {
		t.Fatalf("expected Selection under Arithmetic, got %v", sel.Kind)
	}
	left, right, op, ok := sel.Predicate.IsAttrEqAttr()
	if !ok || op != plan.CmpEq {
		t.Fatalf("expected attr=attr equality predicate, got %+v", sel.Predicate)
	}
	if left.Table != "r" || right.Table != "s" {
		t.Fatalf("unexpected join predicate sides: %+v %+v", left, right)
	}
	if sel.Left.Kind != plan.NodeCrossProduct {
		t.Fatalf("expected CrossProduct under Selection, got %v", sel.Left.Kind)
	}
}

func TestBuildSelectAggregateCount(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "SELECT COUNT(*) FROM r", cat)
	if node.Kind != plan.NodeAggregation {
		t.Fatalf("expected Aggregation, got %v", node.Kind)
	}
	if len(node.Aggregates) != 1 || node.Aggregates[0].Func != plan.AggCount {
		t.Fatalf("unexpected aggregates: %+v", node.Aggregates)
	}
}

func TestBuildInsertMultiRowWithColumnList(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "INSERT INTO r(b, a) VALUES (10, 1), (20, 2)", cat)
	if node.Kind != plan.NodeInsert {
		t.Fatalf("expected Insert, got %v", node.Kind)
	}
	if len(node.InsertRows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(node.InsertRows))
	}
	if node.InsertRows[0][0] != 1 || node.InsertRows[0][1] != 10 {
		t.Fatalf("expected column-list reorder, got %+v", node.InsertRows[0])
	}
}

func TestBuildUpdateSetArithmeticWhere(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "UPDATE r SET b = b + 1 WHERE a = 1", cat)
	if node.Kind != plan.NodeUpdate {
		t.Fatalf("expected Update, got %v", node.Kind)
	}
	if len(node.Assignments) != 1 || node.Assignments[0].ColumnIndex != 1 {
		t.Fatalf("unexpected assignments: %+v", node.Assignments)
	}
	if node.Left.Kind != plan.NodeSelection {
		t.Fatalf("expected Selection child under Update, got %v", node.Left.Kind)
	}
}

func TestBuildDeleteWhere(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "DELETE FROM r WHERE a = 1", cat)
	if node.Kind != plan.NodeDelete || node.Left.Kind != plan.NodeSelection {
		t.Fatalf("unexpected delete plan: %+v", node)
	}
}

func TestBuildCreateTableAndIndex(t *testing.T) {
	cat := newFakeCatalog()
	node := parseBuild(t, "CREATE TABLE u (id INT PRIMARY KEY, name CHAR(8))", cat)
	if node.Kind != plan.NodeCreateTable || len(node.NewColumns) != 2 {
		t.Fatalf("unexpected create table plan: %+v", node)
	}
	if node.NewColumns[0].Nullable {
		t.Fatalf("expected primary key column to be non-nullable: %+v", node.NewColumns[0])
	}

	idx := parseBuild(t, "CREATE UNIQUE INDEX idx_a ON r(a) USING hash", cat)
	if idx.Kind != plan.NodeCreateIndex || !idx.IndexUnique || idx.IndexKind != "hash" {
		t.Fatalf("unexpected create index plan: %+v", idx)
	}
}

func TestBuildTransactionControl(t *testing.T) {
	cat := newFakeCatalog()
	for sqlText, kind := range map[string]plan.NodeKind{
		"BEGIN":  plan.NodeBeginTxn,
		"COMMIT": plan.NodeCommitTxn,
		"ABORT":  plan.NodeAbortTxn,
	} {
		node := parseBuild(t, sqlText, cat)
		if node.Kind != kind {
			t.Fatalf("%q: expected %v, got %v", sqlText, kind, node.Kind)
		}
	}
}

func TestBuildUnknownTableFails(t *testing.T) {
	cat := newFakeCatalog()
	parsed, err := sql.NewParser("SELECT * FROM missing").ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Build(parsed, cat); err == nil {
		t.Fatal("expected an error for an unknown table")
	}
}

func TestBuildIsNullUnsupported(t *testing.T) {
	cat := newFakeCatalog()
	parsed, err := sql.NewParser("SELECT * FROM r WHERE a IS NULL").ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Build(parsed, cat); err == nil {
		t.Fatal("expected IS NULL to be rejected")
	}
}
