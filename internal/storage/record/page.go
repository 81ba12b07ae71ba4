package record

import (
	"encoding/binary"
	"fmt"

	"github.com/beedb-project/beedb/internal/storage/page"
)

// RecordPage wraps a raw buffer-pool page as a slotted record page. Layout,
// grounded on tinySQL's pager.SlottedPage:
//
//	[0:4]   NextPageID    uint32 — forms this table's page chain
//	[4:6]   SlotCount     uint16
//	[6:8]   FreeSpaceEnd  uint16
//	[8:8+4*SlotCount]     Slot directory, 4 bytes per slot
//	... free space ...
//	[FreeSpaceEnd:PageSize]  Record data, grows downward
//
// A record's own bytes always begin with a MetaSize-byte MVCC metadata
// block (mvcc.go) followed by its packed tuple bytes — that split is
// opaque to RecordPage itself, which only moves raw byte strings around.
//
// Each slot entry is 4 bytes: [0:2] Offset uint16, [2:4] Length uint16.
// A slot with Offset==0 and Length==0 is a tombstone.
const (
	pageHeaderOff  = 0
	pageHeaderSize = 8 // NextPageID(4) + SlotCount(2) + FreeSpaceEnd(2)
	slotDirOff     = pageHeaderOff + pageHeaderSize
	slotEntrySize  = 4
)

// RecordPage exposes record-level operations over a pinned page buffer.
type RecordPage struct {
	buf      []byte
	pageSize int
}

// SlotEntry describes one slot directory entry.
type SlotEntry struct {
	Offset uint16
	Length uint16
}

// WrapRecordPage wraps an existing, already-initialized page buffer.
func WrapRecordPage(buf []byte) *RecordPage {
	return &RecordPage{buf: buf, pageSize: len(buf)}
}

// InitRecordPage initializes buf as an empty record page with no next page.
func InitRecordPage(buf []byte) *RecordPage {
	rp := &RecordPage{buf: buf, pageSize: len(buf)}
	rp.SetNextPageID(page.InvalidID)
	rp.setSlotCount(0)
	rp.setFreeSpaceEnd(len(buf))
	return rp
}

// NextPageID returns the next page in this table's chain, or page.InvalidID
// if this is the chain's tail.
func (rp *RecordPage) NextPageID() page.ID {
	return page.ID(binary.LittleEndian.Uint32(rp.buf[0:4]))
}

// SetNextPageID links this page to the next page in its chain.
func (rp *RecordPage) SetNextPageID(id page.ID) {
	binary.LittleEndian.PutUint32(rp.buf[0:4], uint32(id))
}

// SlotCount returns the number of slots, including tombstones.
func (rp *RecordPage) SlotCount() int {
	return int(binary.LittleEndian.Uint16(rp.buf[4:6]))
}

func (rp *RecordPage) setSlotCount(n int) {
	binary.LittleEndian.PutUint16(rp.buf[4:6], uint16(n))
}

// FreeSpaceEnd is the byte offset where the next record will be written.
func (rp *RecordPage) FreeSpaceEnd() int {
	return int(binary.LittleEndian.Uint16(rp.buf[6:8]))
}

func (rp *RecordPage) setFreeSpaceEnd(off int) {
	binary.LittleEndian.PutUint16(rp.buf[6:8], uint16(off))
}

func (rp *RecordPage) slotDirEnd() int {
	return slotDirOff + rp.SlotCount()*slotEntrySize
}

// FreeSpace returns bytes available for a new record plus its slot entry.
func (rp *RecordPage) FreeSpace() int {
	return rp.FreeSpaceEnd() - rp.slotDirEnd() - slotEntrySize
}

// GetSlot returns the slot entry at index i.
func (rp *RecordPage) GetSlot(i int) SlotEntry {
	off := slotDirOff + i*slotEntrySize
	return SlotEntry{
		Offset: binary.LittleEndian.Uint16(rp.buf[off:]),
		Length: binary.LittleEndian.Uint16(rp.buf[off+2:]),
	}
}

func (rp *RecordPage) setSlot(i int, e SlotEntry) {
	off := slotDirOff + i*slotEntrySize
	binary.LittleEndian.PutUint16(rp.buf[off:], e.Offset)
	binary.LittleEndian.PutUint16(rp.buf[off+2:], e.Length)
}

// IsTombstone reports whether slot i is a deleted record.
func (rp *RecordPage) IsTombstone(i int) bool {
	e := rp.GetSlot(i)
	return e.Offset == 0 && e.Length == 0
}

// GetRecord returns the raw bytes at slot i, or nil if it is a tombstone.
func (rp *RecordPage) GetRecord(i int) []byte {
	e := rp.GetSlot(i)
	if e.Offset == 0 && e.Length == 0 {
		return nil
	}
	return rp.buf[e.Offset : e.Offset+e.Length]
}

// InsertRecord appends data as a new record, reusing a tombstoned slot if
// one exists. Returns the slot index or an error if the page lacks room.
func (rp *RecordPage) InsertRecord(data []byte) (int, error) {
	needed := len(data)
	if rp.FreeSpace() < needed {
		return -1, fmt.Errorf("record: page full: need %d bytes, have %d", needed, rp.FreeSpace())
	}

	newEnd := rp.FreeSpaceEnd() - needed
	copy(rp.buf[newEnd:], data)
	rp.setFreeSpaceEnd(newEnd)

	sc := rp.SlotCount()
	for i := 0; i < sc; i++ {
		if rp.IsTombstone(i) {
			rp.setSlot(i, SlotEntry{Offset: uint16(newEnd), Length: uint16(needed)})
			return i, nil
		}
	}

	rp.setSlot(sc, SlotEntry{Offset: uint16(newEnd), Length: uint16(needed)})
	rp.setSlotCount(sc + 1)
	return sc, nil
}

// DeleteRecord tombstones slot i. Used only by physical vacuum paths — the
// Transaction Manager's logical DELETE instead sets EndTS.
func (rp *RecordPage) DeleteRecord(i int) error {
	if i < 0 || i >= rp.SlotCount() {
		return fmt.Errorf("record: slot %d out of range [0..%d)", i, rp.SlotCount())
	}
	rp.setSlot(i, SlotEntry{Offset: 0, Length: 0})
	return nil
}

// UpdateRecordInPlace overwrites slot i's bytes without changing its length.
// Used for flipping MVCC timestamp fields, which never change a record's
// byte width. Returns an error if data's length differs from the existing
// record's length.
func (rp *RecordPage) UpdateRecordInPlace(i int, data []byte) error {
	if i < 0 || i >= rp.SlotCount() {
		return fmt.Errorf("record: slot %d out of range [0..%d)", i, rp.SlotCount())
	}
	e := rp.GetSlot(i)
	if int(e.Length) != len(data) {
		return fmt.Errorf("record: in-place update length mismatch: slot has %d bytes, got %d", e.Length, len(data))
	}
	copy(rp.buf[e.Offset:], data)
	return nil
}

// ReplaceRecord tombstones slot i and inserts data as a new record, used
// when an updated tuple no longer fits its original slot's width.
func (rp *RecordPage) ReplaceRecord(i int, data []byte) (int, error) {
	if i < 0 || i >= rp.SlotCount() {
		return -1, fmt.Errorf("record: slot %d out of range [0..%d)", i, rp.SlotCount())
	}
	rp.setSlot(i, SlotEntry{Offset: 0, Length: 0})
	return rp.InsertRecord(data)
}

// LiveRecords returns the count of non-tombstoned slots.
func (rp *RecordPage) LiveRecords() int {
	n := 0
	sc := rp.SlotCount()
	for i := 0; i < sc; i++ {
		if !rp.IsTombstone(i) {
			n++
		}
	}
	return n
}

// Bytes returns the underlying page buffer.
func (rp *RecordPage) Bytes() []byte { return rp.buf }
