package exec

import (
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// IndexBuilder receives (key, rid) pairs while BuildIndex scans a table,
// then persists itself to the catalog on commit.
type IndexBuilder interface {
	Add(key any, rid record.RID) error
}

// BuildIndex scans Table and populates Target with (key, rid) pairs for
// every live, visible tuple's ColumnIndex.
type BuildIndex struct {
	Table       *record.Table
	Schema      *types.Schema
	ColumnIndex int
	Target      IndexBuilder

	scan *TableScan
}

func (b *BuildIndex) Open(ctx *Context) error {
	b.scan = &TableScan{Table: b.Table, Schema: b.Schema}
	return b.scan.Open(ctx)
}

func (b *BuildIndex) Next() (*types.Tuple, error) {
	for {
		tup, err := b.scan.Next()
		if err != nil || tup == nil {
			return nil, err
		}
		key := tup.Get(b.ColumnIndex)
		if key == nil {
			continue
		}
		if err := b.Target.Add(key, b.scan.LastRID()); err != nil {
			return nil, err
		}
	}
}

func (b *BuildIndex) Close() error { return b.scan.Close() }
