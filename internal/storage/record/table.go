package record

import (
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/types"
)

// Table is a single table's on-disk identity: its name, schema, and the
// head pages of its two page chains — the live chain holding current
// record versions, and the time-travel chain holding superseded versions
// kept reachable for in-flight readers.
type Table struct {
	ID            uint32
	Name          string
	Schema        *types.Schema
	FirstMainPage page.ID
	FirstTTPage   page.ID // time-travel chain head; page.InvalidID if empty
}

// Visibility decides whether a given record version is visible to the
// transaction requesting it. Defined here, rather than in
// internal/storage/txn, so that this package never imports the
// Transaction Manager — txn.Manager implements this interface and is
// passed in by callers.
type Visibility interface {
	IsVisible(requester uint64, begin, end Timestamp) bool
}
