package exec

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// concatTuples combines left and right into one tuple under schema by
// concatenating their byte buffers in schema order — valid because Schema
// lays out fixed-width columns back to back with no padding, so the
// combined schema's byte layout is exactly left's buffer followed by
// right's.
func concatTuples(schema *types.Schema, left, right *types.Tuple) *types.Tuple {
	buf := make([]byte, 0, len(left.Buf)+len(right.Buf))
	buf = append(buf, left.Buf...)
	buf = append(buf, right.Buf...)
	return types.WrapTuple(schema, buf)
}

// CrossProduct holds the current left tuple, exhausts the right child for
// it, reopens the right child, and advances left.
type CrossProduct struct {
	Left   Operator
	Right  Operator
	Schema *types.Schema

	ctx      *Context
	leftTup  *types.Tuple
	rightOpd bool
}

func (c *CrossProduct) Open(ctx *Context) error {
	c.ctx = ctx
	if err := c.Left.Open(ctx); err != nil {
		return err
	}
	return nil
}

func (c *CrossProduct) Next() (*types.Tuple, error) {
	for {
		if c.leftTup == nil {
			tup, err := c.Left.Next()
			if err != nil || tup == nil {
				return nil, err
			}
			c.leftTup = tup
			if err := c.Right.Open(c.ctx); err != nil {
				return nil, err
			}
			c.rightOpd = true
		}
		rtup, err := c.Right.Next()
		if err != nil {
			return nil, err
		}
		if rtup == nil {
			if err := c.Right.Close(); err != nil {
				return nil, err
			}
			c.rightOpd = false
			c.leftTup = nil
			continue
		}
		return concatTuples(c.Schema, c.leftTup, rtup), nil
	}
}

func (c *CrossProduct) Close() error {
	if c.rightOpd {
		c.Right.Close()
	}
	return c.Left.Close()
}

// NestedLoopsJoin is a CrossProduct filtered by Predicate.
type NestedLoopsJoin struct {
	cp        *CrossProduct
	Schema    *types.Schema
	Predicate *plan.Expr
}

// NewNestedLoopsJoin wires left/right under a CrossProduct core.
func NewNestedLoopsJoin(left, right Operator, schema *types.Schema, predicate *plan.Expr) *NestedLoopsJoin {
	return &NestedLoopsJoin{cp: &CrossProduct{Left: left, Right: right, Schema: schema}, Schema: schema, Predicate: predicate}
}

func (j *NestedLoopsJoin) Open(ctx *Context) error { return j.cp.Open(ctx) }

func (j *NestedLoopsJoin) Next() (*types.Tuple, error) {
	for {
		tup, err := j.cp.Next()
		if err != nil || tup == nil {
			return nil, err
		}
		ok, err := EvalPredicate(j.Predicate, j.Schema, tup)
		if err != nil {
			return nil, err
		}
		if ok {
			return tup, nil
		}
	}
}

func (j *NestedLoopsJoin) Close() error { return j.cp.Close() }

// HashJoin materializes Left into an in-memory hash table keyed on
// LeftKeyIndex on first Next, then probes it with each Right tuple on
// RightKeyIndex. Only equality joins qualify.
type HashJoin struct {
	Left          Operator
	Right         Operator
	Schema        *types.Schema
	LeftKeyIndex  int
	RightKeyIndex int

	ctx      *Context
	table    map[any][]*types.Tuple
	built    bool
	matches  []*types.Tuple
	matchPos int
	rightTup *types.Tuple
}

func (h *HashJoin) Open(ctx *Context) error {
	h.ctx = ctx
	if err := h.Left.Open(ctx); err != nil {
		return err
	}
	return h.Right.Open(ctx)
}

func (h *HashJoin) build() error {
	h.table = make(map[any][]*types.Tuple)
	for {
		tup, err := h.Left.Next()
		if err != nil {
			return err
		}
		if tup == nil {
			break
		}
		key := tup.Get(h.LeftKeyIndex)
		if key == nil {
			continue
		}
		h.table[key] = append(h.table[key], tup)
	}
	h.built = true
	return nil
}

func (h *HashJoin) Next() (*types.Tuple, error) {
	if !h.built {
		if err := h.build(); err != nil {
			return nil, err
		}
	}
	for {
		if h.matchPos < len(h.matches) {
			m := h.matches[h.matchPos]
			h.matchPos++
			return concatTuples(h.Schema, m, h.rightTup), nil
		}
		tup, err := h.Right.Next()
		if err != nil || tup == nil {
			return nil, err
		}
		h.rightTup = tup
		h.matches = h.table[tup.Get(h.RightKeyIndex)]
		h.matchPos = 0
	}
}

func (h *HashJoin) Close() error {
	h.table = nil
	if err := h.Left.Close(); err != nil {
		h.Right.Close()
		return err
	}
	return h.Right.Close()
}
