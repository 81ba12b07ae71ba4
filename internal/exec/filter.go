package exec

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// Selection yields child tuples for which Predicate evaluates true,
// treating any NULL-involving comparison as false.
type Selection struct {
	Child     Operator
	Schema    *types.Schema
	Predicate *plan.Expr
}

func (s *Selection) Open(ctx *Context) error { return s.Child.Open(ctx) }

func (s *Selection) Next() (*types.Tuple, error) {
	for {
		tup, err := s.Child.Next()
		if err != nil || tup == nil {
			return nil, err
		}
		ok, err := EvalPredicate(s.Predicate, s.Schema, tup)
		if err != nil {
			return nil, err
		}
		if ok {
			return tup, nil
		}
	}
}

func (s *Selection) Close() error { return s.Child.Close() }

// LastRID delegates to the child operator, so Update/Delete can sit
// directly above a Selection(TableScan(...)) chain.
func (s *Selection) LastRID() record.RID { return ridOf(s.Child) }
