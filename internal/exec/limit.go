package exec

import "github.com/beedb-project/beedb/internal/types"

// Limit discards Offset child tuples on first pull, then forwards at most
// Limit tuples before reporting exhaustion. A zero Limit
// with Offset 0 yields nothing; a Limit <0 means unbounded.
type Limit struct {
	Child  Operator
	Limit  int
	Offset int

	skipped bool
	served  int
}

func (l *Limit) Open(ctx *Context) error {
	l.skipped = false
	l.served = 0
	return l.Child.Open(ctx)
}

func (l *Limit) Next() (*types.Tuple, error) {
	if !l.skipped {
		for i := 0; i < l.Offset; i++ {
			tup, err := l.Child.Next()
			if err != nil {
				return nil, err
			}
			if tup == nil {
				l.skipped = true
				return nil, nil
			}
		}
		l.skipped = true
	}
	if l.Limit >= 0 && l.served >= l.Limit {
		return nil, nil
	}
	tup, err := l.Child.Next()
	if err != nil || tup == nil {
		return nil, err
	}
	l.served++
	return tup, nil
}

func (l *Limit) Close() error { return l.Child.Close() }
