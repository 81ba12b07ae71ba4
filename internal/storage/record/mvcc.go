package record

import (
	"encoding/binary"

	"github.com/beedb-project/beedb/internal/storage/page"
)

// Timestamp is either an uncommitted transaction id, a committed real
// (logical) time, or Infinity. The Transaction Manager
// (internal/storage/txn) is the only package that knows which of those
// three a given value currently is; the record layer just stores and
// compares the raw 64-bit value.
type Timestamp uint64

// Infinity means "still alive" (as an end_timestamp) or, as a
// begin_timestamp, is an impossible placeholder meaning "invisible to
// everyone".
const Infinity Timestamp = ^Timestamp(0)

// MetaSize is the fixed byte width of the MVCC metadata block prefixing
// every record's packed tuple bytes:
//
//	[0:8]   BeginTS        uint64
//	[8:16]  EndTS          uint64
//	[16:20] OriginalPage   uint32
//	[20:22] OriginalSlot   uint16
//	[22:26] NextChainPage  uint32
//	[26:28] NextChainSlot  uint16
const MetaSize = 28

// Meta is the decoded MVCC metadata block for one stored record version.
type Meta struct {
	BeginTS     Timestamp
	EndTS       Timestamp
	OriginalRID RID // the live "head" version of this record
	NextInChain RID // the prior version, on a time-travel page
}

// DecodeMeta reads a Meta from the first MetaSize bytes of buf.
func DecodeMeta(buf []byte) Meta {
	_ = buf[MetaSize-1]
	return Meta{
		BeginTS: Timestamp(binary.LittleEndian.Uint64(buf[0:8])),
		EndTS:   Timestamp(binary.LittleEndian.Uint64(buf[8:16])),
		OriginalRID: RID{
			Page: page.ID(binary.LittleEndian.Uint32(buf[16:20])),
			Slot: binary.LittleEndian.Uint16(buf[20:22]),
		},
		NextInChain: RID{
			Page: page.ID(binary.LittleEndian.Uint32(buf[22:26])),
			Slot: binary.LittleEndian.Uint16(buf[26:28]),
		},
	}
}

// EncodeMeta writes m into the first MetaSize bytes of buf.
func EncodeMeta(buf []byte, m Meta) {
	_ = buf[MetaSize-1]
	binary.LittleEndian.PutUint64(buf[0:8], uint64(m.BeginTS))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.EndTS))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(m.OriginalRID.Page))
	binary.LittleEndian.PutUint16(buf[20:22], m.OriginalRID.Slot)
	binary.LittleEndian.PutUint32(buf[22:26], uint32(m.NextInChain.Page))
	binary.LittleEndian.PutUint16(buf[26:28], m.NextInChain.Slot)
}

// CASBeginTS atomically (from the caller's point of view — the caller
// holds the page pinned under the buffer pool's latch) swaps BeginTS from
// old to new, reporting whether the swap happened. Used by the Update and
// Delete protocols' timestamp-ownership race.
func CASBeginTS(buf []byte, old, new Timestamp) bool {
	cur := Timestamp(binary.LittleEndian.Uint64(buf[0:8]))
	if cur != old {
		return false
	}
	binary.LittleEndian.PutUint64(buf[0:8], uint64(new))
	return true
}

// CASEndTS is CASBeginTS for the EndTS field.
func CASEndTS(buf []byte, old, new Timestamp) bool {
	cur := Timestamp(binary.LittleEndian.Uint64(buf[8:16]))
	if cur != old {
		return false
	}
	binary.LittleEndian.PutUint64(buf[8:16], uint64(new))
	return true
}

// SetBeginTS forcibly overwrites BeginTS (used by abort/commit, which hold
// the right to write unconditionally after having won the CAS).
func SetBeginTS(buf []byte, ts Timestamp) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ts))
}

// SetEndTS forcibly overwrites EndTS.
func SetEndTS(buf []byte, ts Timestamp) {
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ts))
}

// SetNextInChain overwrites the NextInChain RID field.
func SetNextInChain(buf []byte, r RID) {
	binary.LittleEndian.PutUint32(buf[22:26], uint32(r.Page))
	binary.LittleEndian.PutUint16(buf[26:28], r.Slot)
}

// SetOriginalRID overwrites the OriginalRID field.
func SetOriginalRID(buf []byte, r RID) {
	binary.LittleEndian.PutUint32(buf[16:20], uint32(r.Page))
	binary.LittleEndian.PutUint16(buf[20:22], r.Slot)
}

// ReadBeginTS reads just the BeginTS field without decoding the rest.
func ReadBeginTS(buf []byte) Timestamp { return Timestamp(binary.LittleEndian.Uint64(buf[0:8])) }

// ReadEndTS reads just the EndTS field without decoding the rest.
func ReadEndTS(buf []byte) Timestamp { return Timestamp(binary.LittleEndian.Uint64(buf[8:16])) }
