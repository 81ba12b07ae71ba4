package txn

import (
	"os"
	"testing"

	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

func newTestEnv(t *testing.T) (*Manager, *record.Disk, *record.Table) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "txn-*.db")
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

	return NewManager(), disk, table
}

func TestIsVisible_UniversalInvariant(t *testing.T) {
	m := NewManager()
	self := m.Begin()
	other := m.Begin() // still active; not committed

	// begin == Infinity is never visible.
	if m.IsVisible(self.ID, record.Infinity, record.Infinity) {
		t.Fatal("begin == Infinity must never be visible")
	}

	// Self-created, not self-deleted: visible.
	if !m.IsVisible(self.ID, record.Timestamp(self.ID), record.Infinity) {
		t.Fatal("self-created live version should be visible")
	}

	// Self-created, self-deleted: not visible.
	if m.IsVisible(self.ID, record.Timestamp(self.ID), record.Timestamp(self.ID)) {
		t.Fatal("version this txn deleted itself should not be visible")
	}

	// Created by an active, uncommitted other transaction: not visible.
	if m.IsVisible(self.ID, record.Timestamp(other.ID), record.Infinity) {
		t.Fatal("uncommitted foreign version should not be visible")
	}

	// Committed, began before self, still alive: visible.
	m.markEnded(other, Committed)
	if !m.IsVisible(self.ID, record.Timestamp(other.ID), record.Infinity) {
		t.Fatal("committed version from an earlier transaction should be visible")
	}

	// Committed, began before self, ended before self began: not visible.
	third := m.Begin()
	if m.IsVisible(third.ID, record.Timestamp(other.ID), record.Timestamp(other.ID)) {
		t.Fatal("version closed out before third's begin timestamp should not be visible")
	}
}

func TestCommit_InsertBecomesVisibleToLaterTransaction(t *testing.T) {
	m, disk, table := newTestEnv(t)

	t1 := m.Begin()
	tup := types.NewTuple(table.Schema)
	tup.Set(0, int32(1))
	tup.Set(1, int32(0))
	rid, err := m.Insert(t1, disk, table, tup)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := m.Commit(t1, disk)
	if err != nil || !ok {
		t.Fatalf("commit failed: ok=%v err=%v", ok, err)
	}

	t2 := m.Begin()
	tuples, rids, err := disk.ReadRows(table, t2.ID, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0].Get(0) != int32(1) {
		t.Fatalf("expected the committed row visible, got %+v", tuples)
	}
	if rids[0] != rid {
		t.Fatalf("expected rid %v, got %v", rid, rids[0])
	}
}

func TestConcurrentUpdate_LoserAborts(t *testing.T) {
	m, disk, table := newTestEnv(t)

	setup := m.Begin()
	tup := types.NewTuple(table.Schema)
	tup.Set(0, int32(1))
	tup.Set(1, int32(0))
	rid, err := m.Insert(setup, disk, table, tup)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Commit(setup, disk); err != nil || !ok {
		t.Fatalf("setup commit failed: %v %v", ok, err)
	}

	t1 := m.Begin()
	t2 := m.Begin()

	incr := func(tup *types.Tuple) error {
		v := tup.Get(1).(int32)
		return tup.Set(1, v+1)
	}

	err1 := m.Update(t1, disk, table, rid, incr)
	err2 := m.Update(t2, disk, table, rid, incr)

	if (err1 == nil) == (err2 == nil) {
		t.Fatalf("expected exactly one winner, got err1=%v err2=%v", err1, err2)
	}

	var winner, loser *Transaction
	if err1 == nil {
		winner, loser = t1, t2
	} else {
		winner, loser = t2, t1
	}

	if ok, err := m.Commit(winner, disk); err != nil || !ok {
		t.Fatalf("winner commit failed: %v %v", ok, err)
	}
	if err := m.Abort(loser, disk); err != nil {
		t.Fatalf("loser abort failed: %v", err)
	}

	reader := m.Begin()
	tuples, _, err := disk.ReadRows(table, reader.ID, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Fatalf("expected exactly one visible row, got %d", len(tuples))
	}
	if got := tuples[0].Get(1); got != int32(1) {
		t.Fatalf("expected v=1 after one successful increment, got %v", got)
	}
}

func TestDelete_ThenAbort_RestoresVisibility(t *testing.T) {
	m, disk, table := newTestEnv(t)

	setup := m.Begin()
	tup := types.NewTuple(table.Schema)
	tup.Set(0, int32(9))
	tup.Set(1, int32(9))
	rid, err := m.Insert(setup, disk, table, tup)
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.Commit(setup, disk); !ok {
		t.Fatal("setup commit failed")
	}

	deleter := m.Begin()
	if err := m.Delete(deleter, disk, table, rid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Abort(deleter, disk); err != nil {
		t.Fatalf("abort: %v", err)
	}

	reader := m.Begin()
	tuples, _, err := disk.ReadRows(table, reader.ID, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Fatalf("expected row to still be visible after aborted delete, got %d rows", len(tuples))
	}
}
