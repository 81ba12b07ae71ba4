package exec

import (
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// TableScan pulls tuples from a table's main page chain page-batch at a
// time, registering every tuple it yields in the transaction's read set.
type TableScan struct {
	Table  *record.Table
	Schema *types.Schema

	ctx     *Context
	cursor  *record.ScanCursor
	lastRID record.RID
}

func (s *TableScan) Open(ctx *Context) error {
	s.ctx = ctx
	batch := ctx.ScanPageBatch
	if batch < 1 {
		batch = 1
	}
	s.cursor = ctx.Disk.OpenScan(s.Table, ctx.Txn.ID, ctx.TxnMgr, batch)
	return nil
}

func (s *TableScan) Next() (*types.Tuple, error) {
	tup, rid, ok, err := s.cursor.Next()
	if err != nil || !ok {
		return nil, err
	}
	s.ctx.Txn.RecordRead(rid, rid)
	s.lastRID = rid
	return tup, nil
}

// LastRID returns the RID of the tuple most recently returned by Next,
// used by Update/Delete operators sitting above a scan.
func (s *TableScan) LastRID() record.RID { return s.lastRID }

func (s *TableScan) Close() error {
	s.cursor = nil
	return nil
}

// IndexLookup is the minimal capability an index exposes: resolving a
// key range to the RIDs it covers. The concrete index implementation
// (catalog-owned) supplies this; exec only consumes it.
type IndexLookup interface {
	Lookup(keyRanges []KeyRange) ([]record.RID, error)
}

// KeyRange mirrors plan.IndexKeyRange without importing the plan package
// into exec's operator surface. Column identifies the attribute the
// fragment constrains; every KeyRange passed to one IndexLookup.Lookup
// call targets the same column, so Lookup can intersect them as the
// conjunction they came from rather than union them.
type KeyRange struct {
	Column string
	Op     int // mirrors plan.CmpOp's int values
	Lit    any
}

// IndexScan resolves key ranges against an index to a set of RIDs, then
// decodes and filters each exactly as TableScan does.
type IndexScan struct {
	Table     *record.Table
	Schema    *types.Schema
	Index     IndexLookup
	KeyRanges []KeyRange

	ctx     *Context
	rids    []record.RID
	pos     int
	lastRID record.RID
}

func (s *IndexScan) Open(ctx *Context) error {
	s.ctx = ctx
	rids, err := s.Index.Lookup(s.KeyRanges)
	if err != nil {
		return err
	}
	s.rids = rids
	s.pos = 0
	return nil
}

func (s *IndexScan) Next() (*types.Tuple, error) {
	for s.pos < len(s.rids) {
		rid := s.rids[s.pos]
		s.pos++
		raw, err := s.ctx.Disk.ReadRaw(rid)
		if err != nil {
			continue
		}
		meta := record.DecodeMeta(raw)
		if !s.ctx.TxnMgr.IsVisible(s.ctx.Txn.ID, meta.BeginTS, meta.EndTS) {
			continue
		}
		tup := types.WrapTuple(s.Schema, raw[record.MetaSize:])
		s.ctx.Txn.RecordRead(rid, rid)
		s.lastRID = rid
		return tup, nil
	}
	return nil, nil
}

// LastRID returns the RID of the tuple most recently returned by Next.
func (s *IndexScan) LastRID() record.RID { return s.lastRID }

func (s *IndexScan) Close() error {
	s.rids = nil
	return nil
}
