package exec

import (
	"os"
	"testing"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

func newTestEnv(t *testing.T) (*txn.Manager, *record.Disk, *record.Table) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "exec-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	mgr, err := page.Open(f.Name(), 4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mgr.Close() })

	pool := buffer.New(mgr, 16, buffer.NewClockStrategy(16))
	disk := record.NewDisk(pool, mgr)

	cols := []types.Column{
		{ID: 1, Name: "id", Type: types.Int32},
		{ID: 2, Name: "v", Type: types.Int32},
	}
	terms := []types.Term{{Table: "t", Name: "id"}, {Table: "t", Name: "v"}}
	schema := types.NewSchema(cols, terms)
	table := &record.Table{ID: 1, Name: "t", Schema: schema, FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID}

	return txn.NewManager(), disk, table
}

func newCtx(mgr *txn.Manager, disk *record.Disk, tx *txn.Transaction) *Context {
	return &Context{Txn: tx, TxnMgr: mgr, Disk: disk, ScanPageBatch: 4}
}

func TestInsertThenScan(t *testing.T) {
	mgr, disk, table := newTestEnv(t)

	t1 := mgr.Begin()
	ins := &Insert{Table: table, Schema: table.Schema, Rows: [][]any{
		{int32(2), int32(20)},
		{int32(1), int32(10)},
	}}
	if _, err := Collect(newCtx(mgr, disk, t1), ins); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok, err := mgr.Commit(t1, disk); err != nil || !ok {
		t.Fatalf("commit: ok=%v err=%v", ok, err)
	}

	t2 := mgr.Begin()
	scan := &TableScan{Table: table, Schema: table.Schema}
	order := &Order{Child: scan, Schema: table.Schema, Keys: []plan.OrderKey{{ColumnIndex: 0, Ascending: true}}}
	rows, err := Collect(newCtx(mgr, disk, t2), order)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Get(0) != int32(1) || rows[1].Get(0) != int32(2) {
		t.Fatalf("unexpected order: %v, %v", rows[0].Get(0), rows[1].Get(0))
	}
}

func incrementV() []plan.AssignSpec {
	return []plan.AssignSpec{{
		ColumnIndex: 1,
		NewValue:    plan.Arith(plan.ArithAdd, plan.Attr("t", "v"), plan.Lit(int32(1), types.Int32), types.Int32),
	}}
}

func updateWhereID1(table *record.Table) *Update {
	scan := &TableScan{Table: table, Schema: table.Schema}
	sel := &Selection{
		Child:     scan,
		Schema:    table.Schema,
		Predicate: plan.Cmp(plan.CmpEq, plan.Attr("t", "id"), plan.Lit(int32(1), types.Int32)),
	}
	return &Update{Child: sel, Table: table, Schema: table.Schema, Assignments: incrementV()}
}

func TestConcurrentUpdateLoses(t *testing.T) {
	mgr, disk, table := newTestEnv(t)

	seed := mgr.Begin()
	ins := &Insert{Table: table, Schema: table.Schema, Rows: [][]any{{int32(1), int32(0)}}}
	if _, err := Collect(newCtx(mgr, disk, seed), ins); err != nil {
		t.Fatal(err)
	}
	if ok, err := mgr.Commit(seed, disk); err != nil || !ok {
		t.Fatalf("seed commit: ok=%v err=%v", ok, err)
	}

	t1 := mgr.Begin()
	t2 := mgr.Begin()

	_, err1 := Collect(newCtx(mgr, disk, t1), updateWhereID1(table))
	_, err2 := Collect(newCtx(mgr, disk, t2), updateWhereID1(table))

	var winner, loser *txn.Transaction
	switch {
	case err1 == nil && err2 != nil:
		winner, loser = t1, t2
	case err2 == nil && err1 != nil:
		winner, loser = t2, t1
	default:
		t.Fatalf("expected exactly one update to fail with a write-write conflict, got err1=%v err2=%v", err1, err2)
	}

	if ok, err := mgr.Commit(winner, disk); err != nil || !ok {
		t.Fatalf("winner commit: ok=%v err=%v", ok, err)
	}
	if err := mgr.Abort(loser, disk); err != nil {
		t.Fatalf("loser abort: %v", err)
	}

	reader := mgr.Begin()
	rows, err := Collect(newCtx(mgr, disk, reader), &TableScan{Table: table, Schema: table.Schema})
	if err != nil {
		t.Fatalf("final scan: %v", err)
	}
	if len(rows) != 1 || rows[0].Get(1) != int32(1) {
		t.Fatalf("expected exactly one increment to stick, got %+v", rows)
	}
}

func TestLimitOffset(t *testing.T) {
	mgr, disk, table := newTestEnv(t)

	t1 := mgr.Begin()
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{int32(i), int32(i * 10)}
	}
	ins := &Insert{Table: table, Schema: table.Schema, Rows: rows}
	if _, err := Collect(newCtx(mgr, disk, t1), ins); err != nil {
		t.Fatal(err)
	}
	mgr.Commit(t1, disk)

	t2 := mgr.Begin()
	scan := &TableScan{Table: table, Schema: table.Schema}
	lim := &Limit{Child: scan, Limit: 2, Offset: 3}
	out, err := Collect(newCtx(mgr, disk, t2), lim)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].Get(0) != int32(3) || out[1].Get(0) != int32(4) {
		t.Fatalf("unexpected rows: %v, %v", out[0].Get(0), out[1].Get(0))
	}
}

func TestHashJoin(t *testing.T) {
	rCols := []types.Column{{ID: 1, Name: "a", Type: types.Int32}}
	rTerms := []types.Term{{Table: "r", Name: "a"}}
	rSchema := types.NewSchema(rCols, rTerms)

	sCols := []types.Column{{ID: 1, Name: "a", Type: types.Int32}}
	sTerms := []types.Term{{Table: "s", Name: "a"}}
	sSchema := types.NewSchema(sCols, sTerms)

	left := &memOperator{schema: rSchema, rows: [][]any{{int32(1)}, {int32(2)}}}
	right := &memOperator{schema: sSchema, rows: [][]any{{int32(2)}, {int32(3)}}}

	combined := rSchema.Concat(sSchema)
	hj := &HashJoin{Left: left, Right: right, Schema: combined, LeftKeyIndex: 0, RightKeyIndex: 0}

	out, err := Collect(&Context{}, hj)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 matching row, got %d", len(out))
	}
	if out[0].Get(0) != int32(2) || out[0].Get(1) != int32(2) {
		t.Fatalf("unexpected joined row: %v, %v", out[0].Get(0), out[0].Get(1))
	}
}

// memOperator serves pre-built rows from memory, for join tests that need
// two independent small tables without going through storage.
type memOperator struct {
	schema *types.Schema
	rows   [][]any
	pos    int
}

func (m *memOperator) Open(ctx *Context) error { m.pos = 0; return nil }

func (m *memOperator) Next() (*types.Tuple, error) {
	if m.pos >= len(m.rows) {
		return nil, nil
	}
	tup := types.NewTuple(m.schema)
	for i, v := range m.rows[m.pos] {
		if err := tup.Set(i, v); err != nil {
			return nil, err
		}
	}
	m.pos++
	return tup, nil
}

func (m *memOperator) Close() error { return nil }
