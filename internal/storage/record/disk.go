package record

import (
	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/types"
)

// Disk is the Table Disk Manager: it turns buffer-pool pages into record
// pages and provides the append/update/scan operations tables need, walking
// each table's two page chains. It never decides visibility
// itself — ReadRows takes a Visibility implementation supplied by the
// caller so this package stays free of a dependency on internal/storage/txn.
type Disk struct {
	pool *buffer.Pool
	mgr  *page.Manager
}

// NewDisk builds a Disk Manager over an already-open buffer pool and page
// manager (they must share the same underlying file).
func NewDisk(pool *buffer.Pool, mgr *page.Manager) *Disk {
	return &Disk{pool: pool, mgr: mgr}
}

// PageCount reports how many pages the underlying file already holds, so
// callers can tell a freshly created file apart from one being reopened
// without relying on any table's own in-memory state.
func (d *Disk) PageCount() page.ID {
	return d.mgr.PageCount()
}

// packRecord concatenates an MVCC metadata block with a tuple's packed
// bytes, the on-page representation of one record version.
func packRecord(m Meta, tup *types.Tuple) []byte {
	buf := make([]byte, MetaSize+len(tup.Buf))
	EncodeMeta(buf, m)
	copy(buf[MetaSize:], tup.Buf)
	return buf
}

func unpackRecord(raw []byte, schema *types.Schema) (Meta, *types.Tuple) {
	m := DecodeMeta(raw)
	tup := types.WrapTuple(schema, append([]byte(nil), raw[MetaSize:]...))
	return m, tup
}

// Append inserts tup as a brand-new record version owned by txnID, walking
// t's main chain for a page with room and allocating a new tail page if
// none has space. Returns the RID of the inserted version.
func (d *Disk) Append(t *Table, txnID uint64, tup *types.Tuple) (RID, error) {
	raw := packRecord(Meta{BeginTS: Timestamp(txnID), EndTS: Infinity, NextInChain: InvalidRID}, tup)

	pid, slot, err := d.insertIntoChain(&t.FirstMainPage, raw)
	if err != nil {
		return InvalidRID, err
	}
	rid := RID{Page: pid, Slot: uint16(slot)}

	// Stamp the record's OriginalRID with its own RID now that it's known.
	p, err := d.pool.Pin(pid)
	if err != nil {
		return InvalidRID, err
	}
	rp := WrapRecordPage(p.Bytes)
	rec := rp.GetRecord(slot)
	SetOriginalRID(rec, rid)
	if err := d.pool.Unpin(pid, true); err != nil {
		return InvalidRID, err
	}
	return rid, nil
}

// insertIntoChain walks the chain starting at *head looking for a page with
// room for raw, allocating and linking a new tail page if none is found. It
// updates *head if the chain was previously empty.
func (d *Disk) insertIntoChain(head *page.ID, raw []byte) (page.ID, int, error) {
	if *head == page.InvalidID {
		pid, err := d.allocateChainPage()
		if err != nil {
			return page.InvalidID, -1, err
		}
		*head = pid
	}

	cur := *head
	for {
		p, err := d.pool.Pin(cur)
		if err != nil {
			return page.InvalidID, -1, err
		}
		rp := WrapRecordPage(p.Bytes)
		if rp.FreeSpace() >= len(raw) {
			slot, err := rp.InsertRecord(raw)
			if err != nil {
				d.pool.Unpin(cur, false)
				return page.InvalidID, -1, err
			}
			if err := d.pool.Unpin(cur, true); err != nil {
				return page.InvalidID, -1, err
			}
			return cur, slot, nil
		}
		next := rp.NextPageID()
		if next == page.InvalidID {
			newPid, err := d.allocateChainPage()
			if err != nil {
				d.pool.Unpin(cur, false)
				return page.InvalidID, -1, err
			}
			rp.SetNextPageID(newPid)
			if err := d.pool.Unpin(cur, true); err != nil {
				return page.InvalidID, -1, err
			}
			cur = newPid
			continue
		}
		if err := d.pool.Unpin(cur, false); err != nil {
			return page.InvalidID, -1, err
		}
		cur = next
	}
}

func (d *Disk) allocateChainPage() (page.ID, error) {
	pid, err := d.mgr.AllocatePage()
	if err != nil {
		return page.InvalidID, err
	}
	p, err := d.pool.Pin(pid)
	if err != nil {
		return page.InvalidID, err
	}
	InitRecordPage(p.Bytes)
	if err := d.pool.Unpin(pid, true); err != nil {
		return page.InvalidID, err
	}
	return pid, nil
}

// ReadRows scans t's main chain, returning the tuple and RID of the
// version of each live record visible to txnID, following the time-travel
// chain backward when the head version is not visible.
func (d *Disk) ReadRows(t *Table, txnID uint64, vis Visibility) ([]*types.Tuple, []RID, error) {
	var tuples []*types.Tuple
	var rids []RID

	cur := t.FirstMainPage
	for cur != page.InvalidID {
		p, err := d.pool.Pin(cur)
		if err != nil {
			return nil, nil, err
		}
		rp := WrapRecordPage(p.Bytes)
		sc := rp.SlotCount()
		for i := 0; i < sc; i++ {
			if rp.IsTombstone(i) {
				continue
			}
			raw := rp.GetRecord(i)
			m, tup := unpackRecord(raw, t.Schema)
			if vis.IsVisible(txnID, m.BeginTS, m.EndTS) {
				tuples = append(tuples, tup)
				rids = append(rids, RID{Page: cur, Slot: uint16(i)})
				continue
			}
			visTup, visRID, found, err := d.walkTimeTravel(t, m.NextInChain, txnID, vis)
			if err != nil {
				d.pool.Unpin(cur, false)
				return nil, nil, err
			}
			if found {
				tuples = append(tuples, visTup)
				rids = append(rids, visRID)
			}
		}
		next := rp.NextPageID()
		if err := d.pool.Unpin(cur, false); err != nil {
			return nil, nil, err
		}
		cur = next
	}
	return tuples, rids, nil
}

// walkTimeTravel follows a version chain through the time-travel pages
// looking for the newest version visible to txnID.
func (d *Disk) walkTimeTravel(t *Table, rid RID, txnID uint64, vis Visibility) (*types.Tuple, RID, bool, error) {
	for rid.IsValid() {
		p, err := d.pool.Pin(rid.Page)
		if err != nil {
			return nil, InvalidRID, false, err
		}
		rp := WrapRecordPage(p.Bytes)
		raw := rp.GetRecord(int(rid.Slot))
		if raw == nil {
			if err := d.pool.Unpin(rid.Page, false); err != nil {
				return nil, InvalidRID, false, err
			}
			return nil, InvalidRID, false, nil
		}
		m, tup := unpackRecord(raw, t.Schema)
		next := m.NextInChain
		if err := d.pool.Unpin(rid.Page, false); err != nil {
			return nil, InvalidRID, false, err
		}
		if vis.IsVisible(txnID, m.BeginTS, m.EndTS) {
			return tup, rid, true, nil
		}
		rid = next
	}
	return nil, InvalidRID, false, nil
}

// CopyToTimeTravel appends raw (an already-packed metadata+tuple record
// superseded by an update) onto t's time-travel chain, returning its new
// RID so the live version's NextInChain can point at it.
func (d *Disk) CopyToTimeTravel(t *Table, raw []byte) (RID, error) {
	pid, slot, err := d.insertIntoChain(&t.FirstTTPage, raw)
	if err != nil {
		return InvalidRID, err
	}
	return RID{Page: pid, Slot: uint16(slot)}, nil
}

// ReadRaw returns the raw metadata+tuple bytes stored at rid, unparsed.
func (d *Disk) ReadRaw(rid RID) ([]byte, error) {
	p, err := d.pool.Pin(rid.Page)
	if err != nil {
		return nil, err
	}
	rp := WrapRecordPage(p.Bytes)
	raw := rp.GetRecord(int(rid.Slot))
	if raw == nil {
		d.pool.Unpin(rid.Page, false)
		return nil, bderr.New(bderr.KindValidationFailure, "record: rid refers to a tombstoned slot")
	}
	out := append([]byte(nil), raw...)
	if err := d.pool.Unpin(rid.Page, false); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateInPlace overwrites the record at rid with data, which must be the
// same length as the record currently occupies — used for flipping MVCC
// timestamp fields.
func (d *Disk) UpdateInPlace(rid RID, data []byte) error {
	p, err := d.pool.Pin(rid.Page)
	if err != nil {
		return err
	}
	rp := WrapRecordPage(p.Bytes)
	if err := rp.UpdateRecordInPlace(int(rid.Slot), data); err != nil {
		d.pool.Unpin(rid.Page, false)
		return err
	}
	return d.pool.Unpin(rid.Page, true)
}

// Replace tombstones the record at rid and inserts newRaw as a fresh
// record on the same page chain, used when an update's new tuple no longer
// fits the old record's byte width. Returns the new RID.
func (d *Disk) Replace(rid RID, newRaw []byte) (RID, error) {
	p, err := d.pool.Pin(rid.Page)
	if err != nil {
		return InvalidRID, err
	}
	rp := WrapRecordPage(p.Bytes)
	slot, err := rp.ReplaceRecord(int(rid.Slot), newRaw)
	if err != nil {
		d.pool.Unpin(rid.Page, false)
		return InvalidRID, err
	}
	if err := d.pool.Unpin(rid.Page, true); err != nil {
		return InvalidRID, err
	}
	return RID{Page: rid.Page, Slot: uint16(slot)}, nil
}

// ScanCursor walks a table's main chain a page-batch at a time, decoding
// visible tuples into an internal buffer and handing them out one by one:
// next serves tuples from that buffer, and once it empties, pins up to
// page-batch-size pages along the chain to refill it.
type ScanCursor struct {
	d         *Disk
	t         *Table
	txnID     uint64
	vis       Visibility
	batchSize int
	nextPage  page.ID
	buf       []*types.Tuple
	bufRIDs   []RID
	pos       int
}

// OpenScan positions a cursor at t's first main page.
func (d *Disk) OpenScan(t *Table, txnID uint64, vis Visibility, batchSize int) *ScanCursor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &ScanCursor{d: d, t: t, txnID: txnID, vis: vis, batchSize: batchSize, nextPage: t.FirstMainPage}
}

// Next returns the next visible tuple and its RID, or ok=false once the
// chain and buffer are both exhausted.
func (c *ScanCursor) Next() (*types.Tuple, RID, bool, error) {
	for c.pos >= len(c.buf) {
		if c.nextPage == page.InvalidID {
			return nil, InvalidRID, false, nil
		}
		if err := c.fill(); err != nil {
			return nil, InvalidRID, false, err
		}
	}
	tup, rid := c.buf[c.pos], c.bufRIDs[c.pos]
	c.pos++
	return tup, rid, true, nil
}

// fill pins up to batchSize pages along the chain, decoding every visible
// record into the buffer, advancing nextPage past whatever it consumed.
// Empty batches (every record on the batch invisible) are skipped over
// until either a visible tuple turns up or the chain ends.
func (c *ScanCursor) fill() error {
	c.buf = c.buf[:0]
	c.bufRIDs = c.bufRIDs[:0]
	c.pos = 0
	for len(c.buf) == 0 && c.nextPage != page.InvalidID {
		c.buf = c.buf[:0]
		c.bufRIDs = c.bufRIDs[:0]
		c.pos = 0
		for n := 0; n < c.batchSize && c.nextPage != page.InvalidID; n++ {
			p, err := c.d.pool.Pin(c.nextPage)
			if err != nil {
				return err
			}
			rp := WrapRecordPage(p.Bytes)
			sc := rp.SlotCount()
			for i := 0; i < sc; i++ {
				if rp.IsTombstone(i) {
					continue
				}
				raw := rp.GetRecord(i)
				m, tup := unpackRecord(raw, c.t.Schema)
				if c.vis.IsVisible(c.txnID, m.BeginTS, m.EndTS) {
					c.buf = append(c.buf, tup)
					c.bufRIDs = append(c.bufRIDs, RID{Page: c.nextPage, Slot: uint16(i)})
					continue
				}
				visTup, visRID, found, err := c.d.walkTimeTravel(c.t, m.NextInChain, c.txnID, c.vis)
				if err != nil {
					c.d.pool.Unpin(c.nextPage, false)
					return err
				}
				if found {
					c.buf = append(c.buf, visTup)
					c.bufRIDs = append(c.bufRIDs, visRID)
				}
			}
			next := rp.NextPageID()
			if err := c.d.pool.Unpin(c.nextPage, false); err != nil {
				return err
			}
			c.nextPage = next
		}
	}
	return nil
}

// Remove physically tombstones the record at rid. Logical deletion under
// MVCC instead flips EndTS via UpdateInPlace; Remove is for vacuum-style
// reclamation of versions no transaction can ever see again.
func (d *Disk) Remove(rid RID) error {
	p, err := d.pool.Pin(rid.Page)
	if err != nil {
		return err
	}
	rp := WrapRecordPage(p.Bytes)
	if err := rp.DeleteRecord(int(rid.Slot)); err != nil {
		d.pool.Unpin(rid.Page, false)
		return err
	}
	return d.pool.Unpin(rid.Page, true)
}
