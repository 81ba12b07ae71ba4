package exec

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// Aggregation drains its child and yields a single row of per-column
// aggregator outputs. Grouping is not implemented: plain aggregation
// only.
type Aggregation struct {
	Child     Operator
	InSchema  *types.Schema
	OutSchema *types.Schema
	Specs     []plan.AggSpec

	done bool
}

type aggState struct {
	count int64
	sum   float64
	min   any
	max   any
	typ   types.ColType
}

func (a *Aggregation) Open(ctx *Context) error {
	a.done = false
	return a.Child.Open(ctx)
}

func (a *Aggregation) Next() (*types.Tuple, error) {
	if a.done {
		return nil, nil
	}
	a.done = true

	states := make([]*aggState, len(a.Specs))
	for i, spec := range a.Specs {
		typ := types.Int64
		if spec.Func != plan.AggCount {
			typ = a.InSchema.Columns[spec.ColumnIndex].Type
		}
		states[i] = &aggState{typ: typ}
	}

	for {
		tup, err := a.Child.Next()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			break
		}
		for i, spec := range a.Specs {
			states[i].absorb(spec, tup)
		}
	}

	out := types.NewTuple(a.OutSchema)
	for i, spec := range a.Specs {
		if err := out.Set(i, states[i].result(spec)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *aggState) absorb(spec plan.AggSpec, tup *types.Tuple) {
	switch spec.Func {
	case plan.AggCount:
		s.count++
		return
	}
	v := tup.Get(spec.ColumnIndex)
	if v == nil {
		return
	}
	s.count++
	switch spec.Func {
	case plan.AggSum, plan.AggAvg:
		f, _ := asFloat(v)
		s.sum += f
	case plan.AggMin:
		if s.min == nil || types.Compare(s.typ, v, s.min) < 0 {
			s.min = v
		}
	case plan.AggMax:
		if s.max == nil || types.Compare(s.typ, v, s.max) > 0 {
			s.max = v
		}
	}
}

func (s *aggState) result(spec plan.AggSpec) any {
	switch spec.Func {
	case plan.AggCount:
		return s.count
	case plan.AggSum:
		return castResult(s.sum, s.typ)
	case plan.AggAvg:
		if s.count == 0 {
			return float64(0)
		}
		return s.sum / float64(s.count)
	case plan.AggMin:
		return s.min
	case plan.AggMax:
		return s.max
	default:
		return nil
	}
}

func (a *Aggregation) Close() error { return a.Child.Close() }
