package exec

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// Insert drains Child (or serves Rows directly when there is no child,
// i.e. a VALUES clause), appending each tuple via the Transaction Manager
// and yielding a copy of the tuple it inserted.
type Insert struct {
	Child  Operator
	Table  *record.Table
	Schema *types.Schema
	Rows   [][]any

	ctx    *Context
	rowPos int
}

func (n *Insert) Open(ctx *Context) error {
	n.ctx = ctx
	n.rowPos = 0
	if n.Child != nil {
		return n.Child.Open(ctx)
	}
	return nil
}

func (n *Insert) Next() (*types.Tuple, error) {
	var tup *types.Tuple
	if n.Child != nil {
		t, err := n.Child.Next()
		if err != nil || t == nil {
			return nil, err
		}
		tup = t
	} else {
		if n.rowPos >= len(n.Rows) {
			return nil, nil
		}
		tup = types.NewTuple(n.Schema)
		for i, v := range n.Rows[n.rowPos] {
			if err := tup.Set(i, v); err != nil {
				return nil, err
			}
		}
		n.rowPos++
	}

	if _, err := n.ctx.TxnMgr.Insert(n.ctx.Txn, n.ctx.Disk, n.Table, tup); err != nil {
		return nil, err
	}
	out := types.NewTuple(n.Schema)
	copy(out.Buf, tup.Buf)
	return out, nil
}

func (n *Insert) Close() error {
	if n.Child != nil {
		return n.Child.Close()
	}
	return nil
}

// Update runs the update protocol on every child tuple, applying
// Assignments to produce the new column values.
type Update struct {
	Child       Operator
	Table       *record.Table
	Schema      *types.Schema
	Assignments []plan.AssignSpec

	ctx *Context
}

func (u *Update) Open(ctx *Context) error {
	u.ctx = ctx
	return u.Child.Open(ctx)
}

func (u *Update) Next() (*types.Tuple, error) {
	tup, err := u.Child.Next()
	if err != nil || tup == nil {
		return nil, err
	}
	rid := ridOf(u.Child)
	err = u.ctx.TxnMgr.Update(u.ctx.Txn, u.ctx.Disk, u.Table, rid, func(live *types.Tuple) error {
		for _, a := range u.Assignments {
			v, err := eval(a.NewValue, u.Schema, tup)
			if err != nil {
				return err
			}
			if err := live.Set(a.ColumnIndex, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tup, nil
}

func (u *Update) Close() error { return u.Child.Close() }

// Delete runs the delete protocol on every child tuple.
type Delete struct {
	Child  Operator
	Table  *record.Table
	Schema *types.Schema

	ctx *Context
}

func (d *Delete) Open(ctx *Context) error {
	d.ctx = ctx
	return d.Child.Open(ctx)
}

func (d *Delete) Next() (*types.Tuple, error) {
	tup, err := d.Child.Next()
	if err != nil || tup == nil {
		return nil, err
	}
	rid := ridOf(d.Child)
	if err := d.ctx.TxnMgr.Delete(d.ctx.Txn, d.ctx.Disk, d.Table, rid); err != nil {
		return nil, err
	}
	return tup, nil
}

func (d *Delete) Close() error { return d.Child.Close() }
