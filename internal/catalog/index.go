package catalog

import (
	"sort"
	"sync"

	"github.com/beedb-project/beedb/internal/exec"
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// memoryIndex is the in-memory index backend this teaching engine uses for
// both hash and range (btree-labeled) indexes: a secondary index's data
// structure is explicitly out of scope beyond the small capability
// interface it must satisfy, so a sorted slice
// under a mutex serves both equality and range lookups without committing
// to a persisted on-disk structure.
type memoryIndex struct {
	mu      sync.RWMutex
	entries []indexPair // kept sorted by key after every Add
}

type indexPair struct {
	Key any
	RID record.RID
}

func newMemoryIndex() *memoryIndex { return &memoryIndex{} }

// Add implements exec.IndexBuilder.
func (idx *memoryIndex) Add(key any, rid record.RID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, indexPair{Key: key, RID: rid})
	sort.Slice(idx.entries, func(i, j int) bool {
		return types.Compare(typeOf(idx.entries[i].Key), idx.entries[i].Key, idx.entries[j].Key) < 0
	})
	return nil
}

// Lookup implements exec.IndexLookup, resolving every key range against
// the sorted entry list and intersecting the results across ranges: every
// KeyRange passed in one call constrains the same column (the optimizer
// never combines fragments from different columns into one IndexScan), so
// they came from an AND in the original predicate and an entry must
// satisfy all of them to belong in the result.
func (idx *memoryIndex) Lookup(keyRanges []exec.KeyRange) ([]record.RID, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(keyRanges) == 0 {
		out := make([]record.RID, len(idx.entries))
		for i, e := range idx.entries {
			out[i] = e.RID
		}
		return out, nil
	}

	var out []record.RID
	for _, e := range idx.entries {
		all := true
		for _, kr := range keyRanges {
			if !matches(e.Key, plan.CmpOp(kr.Op), kr.Lit) {
				all = false
				break
			}
		}
		if all {
			out = append(out, e.RID)
		}
	}
	return out, nil
}

func matches(key any, op plan.CmpOp, lit any) bool {
	t := typeOf(key)
	c := types.Compare(t, key, lit)
	switch op {
	case plan.CmpEq:
		return c == 0
	case plan.CmpNe:
		return c != 0
	case plan.CmpLt:
		return c < 0
	case plan.CmpLe:
		return c <= 0
	case plan.CmpGt:
		return c > 0
	case plan.CmpGe:
		return c >= 0
	default:
		return false
	}
}

func typeOf(v any) types.ColType {
	switch v.(type) {
	case int32:
		return types.Int32
	case int64:
		return types.Int64
	case float64:
		return types.Double
	case string:
		return types.Char
	default:
		return types.Int64
	}
}
