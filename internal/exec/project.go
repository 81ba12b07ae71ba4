package exec

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// Projection copies the named output columns from each child tuple into a
// fresh row laid out by OutSchema.
type Projection struct {
	Child     Operator
	InSchema  *types.Schema
	OutSchema *types.Schema
	Terms     []*plan.Expr
}

func (p *Projection) Open(ctx *Context) error { return p.Child.Open(ctx) }

func (p *Projection) Next() (*types.Tuple, error) {
	tup, err := p.Child.Next()
	if err != nil || tup == nil {
		return nil, err
	}
	out := types.NewTuple(p.OutSchema)
	for i, term := range p.Terms {
		v, err := eval(term, p.InSchema, tup)
		if err != nil {
			return nil, err
		}
		if err := out.Set(i, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Projection) Close() error { return p.Child.Close() }

// Arithmetic produces one output row per child tuple where each output
// column either copies straight from a child column index or evaluates an
// expression tree.
type Arithmetic struct {
	Child     Operator
	InSchema  *types.Schema
	OutSchema *types.Schema
	Specs     []plan.ArithSpec
}

func (a *Arithmetic) Open(ctx *Context) error { return a.Child.Open(ctx) }

func (a *Arithmetic) Next() (*types.Tuple, error) {
	tup, err := a.Child.Next()
	if err != nil || tup == nil {
		return nil, err
	}
	out := types.NewTuple(a.OutSchema)
	for i, spec := range a.Specs {
		if spec.CopyFromChild {
			if err := out.Set(i, tup.Get(spec.ChildIndex)); err != nil {
				return nil, err
			}
			continue
		}
		v, err := eval(spec.Expr, a.InSchema, tup)
		if err != nil {
			return nil, err
		}
		if err := out.Set(i, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *Arithmetic) Close() error { return a.Child.Close() }
