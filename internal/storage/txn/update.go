package txn

import (
	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// hasForeignUncommittedMarker reports whether ts currently names an active
// transaction other than self — the "uncommitted marker belonging to a
// different transaction" check update/delete protocols make
// before touching a head version.
func (m *Manager) hasForeignUncommittedMarker(ts record.Timestamp, self uint64) bool {
	return !m.isCommitted(ts) && uint64(ts) != self
}

// Insert appends tup as a new record owned by txn and registers the
// resulting RID in its write set.
func (m *Manager) Insert(txn *Transaction, disk *record.Disk, table *record.Table, tup *types.Tuple) (record.RID, error) {
	rid, err := disk.Append(table, txn.ID, tup)
	if err != nil {
		return record.InvalidRID, err
	}
	txn.recordWrite(WriteEntry{TableID: table.ID, Kind: WriteInsert, HeadRID: rid})
	return rid, nil
}

// Update runs the update protocol against the head version at
// headRID: observe, conflict-check, copy to time-travel, CAS the begin
// timestamp, link the chain, and apply mutate's new column values — all
// under the per-RID latch so the CAS is genuinely atomic with respect to
// other transactions touching the same record.
func (m *Manager) Update(txn *Transaction, disk *record.Disk, table *record.Table, headRID record.RID, mutate func(tup *types.Tuple) error) error {
	latch := m.Latch(headRID)
	latch.Lock()
	defer latch.Unlock()

	raw, err := disk.ReadRaw(headRID)
	if err != nil {
		return err
	}
	meta := record.DecodeMeta(raw)
	if m.hasForeignUncommittedMarker(meta.BeginTS, txn.ID) || m.hasForeignUncommittedMarker(meta.EndTS, txn.ID) {
		return bderr.Wrap(bderr.KindWriteWriteConflict, "update", bderr.ErrWriteWriteConflict)
	}

	oldCopy := append([]byte(nil), raw...)
	copyRID, err := disk.CopyToTimeTravel(table, oldCopy)
	if err != nil {
		return err
	}

	if !record.CASBeginTS(raw, meta.BeginTS, record.Timestamp(txn.ID)) {
		disk.Remove(copyRID)
		return bderr.Wrap(bderr.KindWriteWriteConflict, "update", bderr.ErrWriteWriteConflict)
	}
	record.SetNextInChain(raw, copyRID)

	tup := types.WrapTuple(table.Schema, raw[record.MetaSize:])
	if err := mutate(tup); err != nil {
		return err
	}

	if err := disk.UpdateInPlace(headRID, raw); err != nil {
		return err
	}
	txn.recordWrite(WriteEntry{TableID: table.ID, Kind: WriteUpdate, HeadRID: headRID, CopyRID: copyRID})
	return nil
}

// Delete runs the delete protocol: identical to Update's conflict
// check, but the CAS targets the end timestamp and no time-travel copy is
// made — the head version remains in place, now closed off.
func (m *Manager) Delete(txn *Transaction, disk *record.Disk, table *record.Table, headRID record.RID) error {
	latch := m.Latch(headRID)
	latch.Lock()
	defer latch.Unlock()

	raw, err := disk.ReadRaw(headRID)
	if err != nil {
		return err
	}
	meta := record.DecodeMeta(raw)
	if m.hasForeignUncommittedMarker(meta.BeginTS, txn.ID) || m.hasForeignUncommittedMarker(meta.EndTS, txn.ID) {
		return bderr.Wrap(bderr.KindWriteWriteConflict, "delete", bderr.ErrWriteWriteConflict)
	}

	if !record.CASEndTS(raw, meta.EndTS, record.Timestamp(txn.ID)) {
		return bderr.Wrap(bderr.KindWriteWriteConflict, "delete", bderr.ErrWriteWriteConflict)
	}
	if err := disk.UpdateInPlace(headRID, raw); err != nil {
		return err
	}
	txn.recordWrite(WriteEntry{TableID: table.ID, Kind: WriteDelete, HeadRID: headRID})
	return nil
}
