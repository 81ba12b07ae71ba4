package txn

import (
	"sync"

	"github.com/beedb-project/beedb/internal/storage/record"
)

// latchTable is a fixed-size stripe of mutexes, one per hash bucket of a
// RID, approximating a fine-grained latch per record without allocating
// a mutex per live record.
type latchTable struct {
	stripes []sync.Mutex
}

func newLatchTable(n int) *latchTable {
	return &latchTable{stripes: make([]sync.Mutex, n)}
}

func (lt *latchTable) forRID(rid record.RID) *sync.Mutex {
	h := uint64(rid.Page)*31 + uint64(rid.Slot)
	return &lt.stripes[h%uint64(len(lt.stripes))]
}
