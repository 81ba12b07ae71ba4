package catalog

import (
	"os"
	"testing"

	"github.com/beedb-project/beedb/internal/exec"
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

func newTestDisk(t *testing.T) (string, *txn.Manager, *record.Disk) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "catalog-*.db")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()

	mgr, err := page.Open(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mgr.Close() })

	pool := buffer.New(mgr, 32, buffer.NewClockStrategy(32))
	return path, txn.NewManager(), record.NewDisk(pool, mgr)
}

func TestBootstrapOnFreshFileSeedsSystemTables(t *testing.T) {
	_, mgr, disk := newTestDisk(t)

	cat, err := Bootstrap(disk, mgr)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	for _, name := range []string{TableSystemTables, TableSystemColumns, TableSystemIndices, TableSystemStatistics} {
		if _, ok := cat.Table(name); !ok {
			t.Fatalf("expected system table %q to be registered", name)
		}
	}

	st, _ := cat.Table(TableSystemTables)
	if st.FirstMainPage == page.InvalidID {
		t.Fatal("expected system_tables' own descriptor row to record a real first page")
	}
}

func TestCreateTableThenInsertAndScan(t *testing.T) {
	_, mgr, disk := newTestDisk(t)
	cat, err := Bootstrap(disk, mgr)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cols := []types.Column{
		{Name: "id", Type: types.Int32},
		{Name: "name", Type: types.Char, Length: 16},
	}
	if err := cat.CreateTable("widgets", cols); err != nil {
		t.Fatalf("create table: %v", err)
	}

	table, ok := cat.Table("widgets")
	if !ok {
		t.Fatal("expected widgets to be registered")
	}
	if table.Schema.NumCols() != 2 {
		t.Fatalf("expected 2 columns, got %d", table.Schema.NumCols())
	}

	tx := mgr.Begin()
	row := types.NewTuple(table.Schema)
	if err := row.Set(0, int32(1)); err != nil {
		t.Fatal(err)
	}
	if err := row.Set(1, "gadget"); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Insert(tx, disk, table, row); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok, err := mgr.Commit(tx, disk); err != nil || !ok {
		t.Fatalf("commit: ok=%v err=%v", ok, err)
	}

	if table.FirstMainPage == page.InvalidID {
		t.Fatal("expected widgets' chain to be allocated after its first insert")
	}
}

func TestCreateIndexPopulatesFromExistingRows(t *testing.T) {
	_, mgr, disk := newTestDisk(t)
	cat, err := Bootstrap(disk, mgr)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cols := []types.Column{{Name: "id", Type: types.Int32}, {Name: "v", Type: types.Int32}}
	if err := cat.CreateTable("widgets", cols); err != nil {
		t.Fatalf("create table: %v", err)
	}
	table, _ := cat.Table("widgets")

	tx := mgr.Begin()
	for _, v := range []int32{30, 10, 20} {
		row := types.NewTuple(table.Schema)
		if err := row.Set(0, v/10); err != nil {
			t.Fatal(err)
		}
		if err := row.Set(1, v); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Insert(tx, disk, table, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if ok, err := mgr.Commit(tx, disk); err != nil || !ok {
		t.Fatalf("commit: ok=%v err=%v", ok, err)
	}

	if err := cat.CreateIndex("idx_v", "widgets", "v", false, "btree"); err != nil {
		t.Fatalf("create index: %v", err)
	}

	capability, ok := cat.IndexFor("widgets", "v")
	if !ok {
		t.Fatal("expected IndexFor to find idx_v")
	}
	if !capability.Range || capability.Name != "idx_v" {
		t.Fatalf("unexpected capability: %+v", capability)
	}

	lookup, ok := cat.Index("widgets", "idx_v")
	if !ok {
		t.Fatal("expected Index to resolve a lookup handle")
	}
	rids, err := lookup.Lookup([]exec.KeyRange{{Op: 0, Lit: int32(20)}})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(rids) != 1 {
		t.Fatalf("expected exactly one match for v=20, got %d", len(rids))
	}
}

func TestBootstrapReloadsExistingCatalog(t *testing.T) {
	path, mgr1, disk1 := newTestDisk(t)
	cat1, err := Bootstrap(disk1, mgr1)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	cols := []types.Column{{Name: "id", Type: types.Int32}}
	if err := cat1.CreateTable("widgets", cols); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := cat1.CreateIndex("idx_id", "widgets", "id", true, "hash"); err != nil {
		t.Fatalf("create index: %v", err)
	}

	mgr2, err := page.Open(path, 4096)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { mgr2.Close() })
	pool2 := buffer.New(mgr2, 32, buffer.NewClockStrategy(32))
	disk2 := record.NewDisk(pool2, mgr2)

	cat2, err := Bootstrap(disk2, txn.NewManager())
	if err != nil {
		t.Fatalf("reload bootstrap: %v", err)
	}

	widgets, ok := cat2.Table("widgets")
	if !ok {
		t.Fatal("expected widgets to survive reload")
	}
	if widgets.Schema.NumCols() != 1 || widgets.Schema.Columns[0].Name != "id" {
		t.Fatalf("unexpected reloaded schema: %+v", widgets.Schema)
	}

	if _, ok := cat2.IndexFor("widgets", "id"); !ok {
		t.Fatal("expected idx_id to survive reload")
	}
}

// TestIndexLookupIntersectsMultipleRanges exercises the case the optimizer
// produces for a bounded range predicate like `v > 10 AND v < 40`: two
// KeyRange fragments on the same column reaching one Lookup call. They came
// from an AND, so the match set must be their intersection, not their
// union — a union would silently widen the result to every row satisfying
// either bound.
func TestIndexLookupIntersectsMultipleRanges(t *testing.T) {
	_, mgr, disk := newTestDisk(t)
	cat, err := Bootstrap(disk, mgr)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cols := []types.Column{{Name: "id", Type: types.Int32}, {Name: "v", Type: types.Int32}}
	if err := cat.CreateTable("widgets", cols); err != nil {
		t.Fatalf("create table: %v", err)
	}
	table, _ := cat.Table("widgets")

	tx := mgr.Begin()
	for _, v := range []int32{5, 15, 25, 35, 45} {
		row := types.NewTuple(table.Schema)
		if err := row.Set(0, v/10); err != nil {
			t.Fatal(err)
		}
		if err := row.Set(1, v); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Insert(tx, disk, table, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if ok, err := mgr.Commit(tx, disk); err != nil || !ok {
		t.Fatalf("commit: ok=%v err=%v", ok, err)
	}

	if err := cat.CreateIndex("idx_v", "widgets", "v", false, "btree"); err != nil {
		t.Fatalf("create index: %v", err)
	}
	lookup, ok := cat.Index("widgets", "idx_v")
	if !ok {
		t.Fatal("expected Index to resolve a lookup handle")
	}

	rids, err := lookup.Lookup([]exec.KeyRange{
		{Column: "v", Op: int(plan.CmpGt), Lit: int32(10)},
		{Column: "v", Op: int(plan.CmpLt), Lit: int32(40)},
	})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(rids) != 2 {
		t.Fatalf("expected exactly the 2 rows with 10 < v < 40 (15, 25), got %d: %+v", len(rids), rids)
	}
}
