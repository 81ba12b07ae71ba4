package exec

import (
	"sort"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// Order drains its child into memory on first Next, stably sorts by Keys
// (ascending keys compare a<b, descending a>b, later keys break ties),
// then yields rows one at a time.
type Order struct {
	Child  Operator
	Schema *types.Schema
	Keys   []plan.OrderKey

	buf    []*types.Tuple
	pos    int
	filled bool
}

func (o *Order) Open(ctx *Context) error {
	o.filled = false
	o.pos = 0
	o.buf = nil
	return o.Child.Open(ctx)
}

func (o *Order) Next() (*types.Tuple, error) {
	if !o.filled {
		for {
			tup, err := o.Child.Next()
			if err != nil {
				return nil, err
			}
			if tup == nil {
				break
			}
			o.buf = append(o.buf, tup)
		}
		sort.SliceStable(o.buf, func(i, j int) bool {
			a, b := o.buf[i], o.buf[j]
			for _, k := range o.Keys {
				c := types.Compare(o.Schema.Columns[k.ColumnIndex].Type, a.Get(k.ColumnIndex), b.Get(k.ColumnIndex))
				if c == 0 {
					continue
				}
				if k.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
		o.filled = true
	}
	if o.pos >= len(o.buf) {
		return nil, nil
	}
	tup := o.buf[o.pos]
	o.pos++
	return tup, nil
}

func (o *Order) Close() error {
	o.buf = nil
	return o.Child.Close()
}
