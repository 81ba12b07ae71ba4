// Package exec implements the Execution Engine: a Volcano-style iterator
// tree of operators, each exposing Open/Next/Close, pulled top-down by a
// driver one tuple at a time.
//
// What/How: grounded on tinySQL's internal/engine executor
// (_teacher_orig/internal/engine/exec.go's executeSelect/executeInsert/
// executeUpdate/executeDelete), which instead evaluates a statement
// eagerly into a materialized ResultSet. This package keeps tinySQL's
// row-at-a-time evaluation shapes (predicate/projection/join logic) but
// restructures them around pull-based Open/Next/Close operators, since
// tinySQL's polymorphism-free style (plain functions, no iterator
// interfaces) has no direct analogue to adapt.
package exec

import (
	"github.com/beedb-project/beedb/internal/bderr"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

// Context is the state threaded through an operator tree for one query:
// the transaction it runs under, the managers it calls into, and tuning
// knobs from config.
type Context struct {
	Txn           *txn.Transaction
	TxnMgr        *txn.Manager
	Disk          *record.Disk
	ScanPageBatch int
}

// Operator is one node of the execution tree.
type Operator interface {
	// Open prepares the operator to be pulled from, recursively opening
	// any children.
	Open(ctx *Context) error
	// Next returns the next output tuple, or (nil, nil) once exhausted.
	Next() (*types.Tuple, error)
	// Close releases every resource (pins, buffers) the operator holds,
	// recursively closing any children. Callers invoke Close exactly once,
	// even after an error from Open or Next.
	Close() error
}

// Run drains op entirely, calling fn for each tuple, and always closes op
// before returning, even if Open, Next, or fn itself fails partway
// through.
func Run(ctx *Context, op Operator, fn func(*types.Tuple) error) error {
	if err := op.Open(ctx); err != nil {
		op.Close()
		return err
	}
	for {
		tup, err := op.Next()
		if err != nil {
			op.Close()
			return err
		}
		if tup == nil {
			break
		}
		if err := fn(tup); err != nil {
			op.Close()
			return err
		}
	}
	return op.Close()
}

// Collect drains op and returns every tuple it yields.
func Collect(ctx *Context, op Operator) ([]*types.Tuple, error) {
	var out []*types.Tuple
	err := Run(ctx, op, func(t *types.Tuple) error {
		out = append(out, t)
		return nil
	})
	return out, err
}

var errNotOpen = bderr.New(bderr.KindValidationFailure, "exec: operator used before Open")

// RIDTracker is implemented by operators that can report the RID backing
// the tuple most recently returned by Next — TableScan, IndexScan, and
// pass-through operators like Selection that sit directly above them.
// Update and Delete use it to find the head RID their protocol applies to.
type RIDTracker interface {
	LastRID() record.RID
}

// ridOf extracts the backing RID from op, which must be (or wrap) a
// RIDTracker. Panics if op's tree carries no RID — a plan built with
// Update/Delete directly above anything but a scan-rooted chain is
// malformed.
func ridOf(op Operator) record.RID {
	rt, ok := op.(RIDTracker)
	if !ok {
		panic("exec: Update/Delete child does not track RIDs")
	}
	return rt.LastRID()
}
