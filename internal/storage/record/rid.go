// Package record implements the Table Disk Manager: it interprets
// buffered pages as slotted record pages carrying tuples plus MVCC
// metadata, and provides append, in-place update, logical delete, and
// scan over page chains, including the time-travel chain for prior
// versions.
//
// What/How: the slotted-page mechanics (slot directory, tombstones,
// grow-from-both-ends allocation) are grounded on tinySQL's
// pager.SlottedPage; the page is generalized to also carry a next-page-id
// header field forming each table's page chain, and to prefix every
// record's tuple bytes with a fixed-size MVCC metadata block.
package record

import "github.com/beedb-project/beedb/internal/storage/page"

// RID identifies one record version: the page it lives on and its slot
// index within that page's slot directory. Stable for the life of that
// record version. RIDs are plain values, never pointers —
// they are looked up through the Buffer Manager each time they are
// followed.
type RID struct {
	Page page.ID
	Slot uint16
}

// InvalidRID denotes "no record" (e.g. a chain terminator).
var InvalidRID = RID{Page: page.InvalidID, Slot: 0xFFFF}

// IsValid reports whether r refers to an actual page.
func (r RID) IsValid() bool { return r.Page != page.InvalidID }
