package exec

import (
	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

// BeginTransaction, CommitTransaction, and AbortTransaction trivially call
// the Transaction Manager; commit failure surfaces as an abort error.

type BeginTransaction struct {
	Mgr *txn.Manager
	Out **txn.Transaction

	done bool
}

func (b *BeginTransaction) Open(ctx *Context) error { b.done = false; return nil }

func (b *BeginTransaction) Next() (*types.Tuple, error) {
	if b.done {
		return nil, nil
	}
	b.done = true
	*b.Out = b.Mgr.Begin()
	return nil, nil
}

func (b *BeginTransaction) Close() error { return nil }

type CommitTransaction struct {
	ctx  *Context
	done bool
}

func (c *CommitTransaction) Open(ctx *Context) error { c.ctx = ctx; c.done = false; return nil }

func (c *CommitTransaction) Next() (*types.Tuple, error) {
	if c.done {
		return nil, nil
	}
	c.done = true
	ok, err := c.ctx.TxnMgr.Commit(c.ctx.Txn, c.ctx.Disk)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, bderr.Wrap(bderr.KindValidationFailure, "commit", bderr.ErrValidationFailure)
	}
	return nil, nil
}

func (c *CommitTransaction) Close() error { return nil }

type AbortTransaction struct {
	ctx  *Context
	done bool
}

func (a *AbortTransaction) Open(ctx *Context) error { a.ctx = ctx; a.done = false; return nil }

func (a *AbortTransaction) Next() (*types.Tuple, error) {
	if a.done {
		return nil, nil
	}
	a.done = true
	return nil, a.ctx.TxnMgr.Abort(a.ctx.Txn, a.ctx.Disk)
}

func (a *AbortTransaction) Close() error { return nil }
