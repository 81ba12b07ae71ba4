package record

import (
	"os"
	"testing"

	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/types"
)

func newTestDisk(t *testing.T) (*Disk, *Table) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "record-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	mgr, err := page.Open(f.Name(), 4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mgr.Close() })

	pool := buffer.New(mgr, 8, buffer.NewClockStrategy(8))
	disk := NewDisk(pool, mgr)

	cols := []types.Column{
		{ID: 1, Name: "id", Type: types.Int32},
		{ID: 2, Name: "name", Type: types.Char, Length: 16, Nullable: true},
	}
	terms := []types.Term{{Table: "t", Name: "id"}, {Table: "t", Name: "name"}}
	schema := types.NewSchema(cols, terms)

	table := &Table{ID: 1, Name: "t", Schema: schema, FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID}
	return disk, table
}

// alwaysVisible implements Visibility and considers every committed record
// visible, treating the given txnID's own writes as visible too.
type alwaysVisible struct{}

func (alwaysVisible) IsVisible(requester uint64, begin, end Timestamp) bool {
	return end == Infinity
}

func TestDisk_AppendThenReadRows(t *testing.T) {
	disk, table := newTestDisk(t)
	tup := types.NewTuple(table.Schema)
	if err := tup.Set(0, int32(7)); err != nil {
		t.Fatal(err)
	}
	if err := tup.Set(1, "alice"); err != nil {
		t.Fatal(err)
	}
	rid, err := disk.Append(table, 1, tup)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !rid.IsValid() {
		t.Fatal("expected valid rid")
	}

	tuples, rids, err := disk.ReadRows(table, 1, alwaysVisible{})
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(tuples) != 1 {
		t.Fatalf("expected 1 tuple, got %d", len(tuples))
	}
	if got := tuples[0].Get(0); got != int32(7) {
		t.Fatalf("expected id 7, got %v", got)
	}
	if rids[0] != rid {
		t.Fatalf("expected rid %v, got %v", rid, rids[0])
	}
}

func TestDisk_AppendAcrossMultiplePages(t *testing.T) {
	disk, table := newTestDisk(t)
	const n = 300 // forces at least one new chain page at 4096 bytes/page
	for i := 0; i < n; i++ {
		tup := types.NewTuple(table.Schema)
		if err := tup.Set(0, int32(i)); err != nil {
			t.Fatal(err)
		}
		tup.SetNull(1)
		if _, err := disk.Append(table, 1, tup); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	tuples, _, err := disk.ReadRows(table, 1, alwaysVisible{})
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(tuples) != n {
		t.Fatalf("expected %d tuples, got %d", n, len(tuples))
	}
	if table.FirstMainPage == table.FirstTTPage {
		t.Fatal("expected main chain to have allocated a real page")
	}
}

func TestDisk_UpdateInPlace_FlipsEndTS(t *testing.T) {
	disk, table := newTestDisk(t)
	tup := types.NewTuple(table.Schema)
	tup.Set(0, int32(1))
	tup.SetNull(1)
	rid, err := disk.Append(table, 1, tup)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := disk.ReadRaw(rid)
	if err != nil {
		t.Fatal(err)
	}
	SetEndTS(raw, Timestamp(2))
	if err := disk.UpdateInPlace(rid, raw); err != nil {
		t.Fatalf("update in place: %v", err)
	}

	raw2, err := disk.ReadRaw(rid)
	if err != nil {
		t.Fatal(err)
	}
	if ReadEndTS(raw2) != Timestamp(2) {
		t.Fatalf("expected end ts 2, got %d", ReadEndTS(raw2))
	}
}

func TestDisk_CopyToTimeTravel_AndWalkBack(t *testing.T) {
	disk, table := newTestDisk(t)
	tup := types.NewTuple(table.Schema)
	tup.Set(0, int32(1))
	tup.SetNull(1)
	rid, err := disk.Append(table, 1, tup)
	if err != nil {
		t.Fatal(err)
	}

	oldRaw, err := disk.ReadRaw(rid)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate an update: the old version becomes a closed-out time-travel
	// entry, the live slot gets a fresh begin timestamp and points back.
	SetEndTS(oldRaw, Timestamp(5))
	ttRID, err := disk.CopyToTimeTravel(table, oldRaw)
	if err != nil {
		t.Fatalf("copy to time travel: %v", err)
	}

	newTup := types.NewTuple(table.Schema)
	newTup.Set(0, int32(2))
	newTup.SetNull(1)
	newRaw := packRecord(Meta{BeginTS: Timestamp(5), EndTS: Infinity, NextInChain: ttRID}, newTup)
	if len(newRaw) != len(oldRaw) {
		t.Fatalf("expected same-width record, got %d vs %d", len(newRaw), len(oldRaw))
	}
	if err := disk.UpdateInPlace(rid, newRaw); err != nil {
		t.Fatal(err)
	}

	// A reader with begin-timestamp before 5 should see the old version via
	// the time-travel chain; one with begin-timestamp >= 5 sees the new one.
	oldReader := snapshotVisibility{asOf: Timestamp(3)}
	tuples, _, err := disk.ReadRows(table, 0, oldReader)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0].Get(0) != int32(1) {
		t.Fatalf("expected old version visible to early reader, got %+v", tuples)
	}

	newReader := snapshotVisibility{asOf: Timestamp(10)}
	tuples, _, err = disk.ReadRows(table, 0, newReader)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0].Get(0) != int32(2) {
		t.Fatalf("expected new version visible to late reader, got %+v", tuples)
	}
}

// snapshotVisibility is a minimal stand-in for txn.Manager's visibility
// predicate: a version is visible if it began at or before asOf and either
// is still open or ended after asOf.
type snapshotVisibility struct{ asOf Timestamp }

func (v snapshotVisibility) IsVisible(requester uint64, begin, end Timestamp) bool {
	return begin <= v.asOf && (end == Infinity || end > v.asOf)
}
