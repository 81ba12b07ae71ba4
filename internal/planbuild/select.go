package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/types"
)

// buildSelect lowers a SELECT statement FROM/JOIN-first: the FROM and any
// JOINs become a CrossProduct chain with the ON-clauses reattached as a
// Selection above it (leaving CrossProductToJoin, rather than this
// package, the job of recognizing an equi-join), WHERE becomes a second
// Selection, then ORDER BY, then the projection list becomes Projection,
// Arithmetic, or Aggregation depending on its shape, and LIMIT/OFFSET
// goes on top.
func buildSelect(s *sql.SelectStmt, cat Catalog) (*plan.Node, error) {
	node, err := buildFromItem(s.From, cat)
	if err != nil {
		return nil, err
	}
	for _, j := range s.Joins {
		right, err := buildFromItem(j.Right, cat)
		if err != nil {
			return nil, err
		}
		combined := node.Schema.Concat(right.Schema)
		cross := &plan.Node{Kind: plan.NodeCrossProduct, Left: node, Right: right, Schema: combined}
		pred, err := lowerExpr(j.On, combined)
		if err != nil {
			return nil, fmt.Errorf("planbuild: join condition: %w", err)
		}
		node = &plan.Node{Kind: plan.NodeSelection, Left: cross, Schema: combined, Predicate: pred}
	}

	if s.Where != nil {
		pred, err := lowerExpr(s.Where, node.Schema)
		if err != nil {
			return nil, fmt.Errorf("planbuild: where clause: %w", err)
		}
		node = &plan.Node{Kind: plan.NodeSelection, Left: node, Schema: node.Schema, Predicate: pred}
	}

	hasAgg := selectHasAggregate(s.Projs)

	if !hasAgg {
		if len(s.OrderBy) > 0 {
			node, err = buildOrder(node, s.OrderBy)
			if err != nil {
				return nil, err
			}
		}
		node, err = buildProjection(node, s.Projs)
		if err != nil {
			return nil, err
		}
		if s.Limit != nil || s.Offset != nil {
			node = buildLimit(node, s.Limit, s.Offset)
		}
		return node, nil
	}

	return buildAggregation(node, s.Projs)
}

func buildFromItem(item sql.FromItem, cat Catalog) (*plan.Node, error) {
	table, err := lookupTable(cat, item.Table)
	if err != nil {
		return nil, err
	}
	alias := item.Alias
	if alias == "" {
		alias = item.Table
	}
	schema := aliasSchema(table.Schema, alias)
	return &plan.Node{Kind: plan.NodeScan, TableName: table.Name, Schema: schema}, nil
}

func selectHasAggregate(projs []sql.SelectItem) bool {
	for _, p := range projs {
		if _, ok := p.Expr.(*sql.FuncCall); ok {
			return true
		}
	}
	return false
}

func buildOrder(child *plan.Node, items []sql.OrderItem) (*plan.Node, error) {
	keys := make([]plan.OrderKey, len(items))
	for i, it := range items {
		idx := child.Schema.Find("", it.Col)
		if idx < 0 {
			return nil, fmt.Errorf("planbuild: unknown order by column %q", it.Col)
		}
		keys[i] = plan.OrderKey{ColumnIndex: idx, Ascending: !it.Desc}
	}
	return &plan.Node{Kind: plan.NodeOrder, Left: child, Schema: child.Schema, OrderKeys: keys}, nil
}

func buildLimit(child *plan.Node, limit, offset *int) *plan.Node {
	n := &plan.Node{Kind: plan.NodeLimit, Left: child, Schema: child.Schema, Limit: -1}
	if limit != nil {
		n.Limit = *limit
	}
	if offset != nil {
		n.Offset = *offset
	}
	return n
}

// buildProjection lowers the non-aggregate projection list. `SELECT *`
// (a single Star item) becomes an identity Projection, giving
// RemoveProjection real no-op material to fold away. Any explicit
// column/expression list becomes Arithmetic, since that operator already
// models a mix of plain column copies and computed expressions.
func buildProjection(child *plan.Node, projs []sql.SelectItem) (*plan.Node, error) {
	if len(projs) == 1 && projs[0].Star {
		terms := make([]*plan.Expr, child.Schema.NumCols())
		for i := 0; i < child.Schema.NumCols(); i++ {
			t := child.Schema.OutputTerm(i)
			terms[i] = plan.Attr(t.Table, t.Name)
		}
		return &plan.Node{Kind: plan.NodeProjection, Left: child, Schema: child.Schema, ProjectTerms: terms}, nil
	}

	specs := make([]plan.ArithSpec, len(projs))
	cols := make([]types.Column, len(projs))
	terms := make([]types.Term, len(projs))
	for i, p := range projs {
		resultName := p.Alias
		if varRef, ok := p.Expr.(*sql.VarRef); ok {
			idx := child.Schema.Find(varRef.Table, varRef.Name)
			if idx < 0 {
				return nil, fmt.Errorf("planbuild: unknown column %q", varRef.Name)
			}
			if resultName == "" {
				resultName = varRef.Name
			}
			specs[i] = plan.ArithSpec{CopyFromChild: true, ChildIndex: idx, ResultTerm: resultName, ResultType: child.Schema.Columns[idx].Type}
			cols[i] = types.Column{ID: i, Name: resultName, Type: child.Schema.Columns[idx].Type, Length: child.Schema.Columns[idx].Length}
			terms[i] = types.Term{Name: resultName}
			continue
		}
		e, err := lowerExpr(p.Expr, child.Schema)
		if err != nil {
			return nil, fmt.Errorf("planbuild: projection %d: %w", i, err)
		}
		if resultName == "" {
			resultName = fmt.Sprintf("col%d", i)
		}
		t := resultTypeOf(e, child.Schema)
		specs[i] = plan.ArithSpec{Expr: e, ResultTerm: resultName, ResultType: t}
		cols[i] = types.Column{ID: i, Name: resultName, Type: t}
		terms[i] = types.Term{Name: resultName}
	}
	schema := types.NewSchema(cols, terms)
	return &plan.Node{Kind: plan.NodeArithmetic, Left: child, Schema: schema, ArithSpecs: specs}, nil
}

func buildAggregation(child *plan.Node, projs []sql.SelectItem) (*plan.Node, error) {
	specs := make([]plan.AggSpec, len(projs))
	cols := make([]types.Column, len(projs))
	terms := make([]types.Term, len(projs))
	for i, p := range projs {
		fc, ok := p.Expr.(*sql.FuncCall)
		if !ok {
			return nil, fmt.Errorf("planbuild: cannot mix aggregate and non-aggregate projections")
		}
		fn, resultType, err := aggFunc(fc.Name)
		if err != nil {
			return nil, err
		}
		resultName := p.Alias
		if resultName == "" {
			resultName = fc.Name
		}
		colIdx := -1
		if !fc.Star {
			varRef, ok := fc.Arg.(*sql.VarRef)
			if !ok {
				return nil, fmt.Errorf("planbuild: aggregate argument must be a plain column reference")
			}
			colIdx = child.Schema.Find(varRef.Table, varRef.Name)
			if colIdx < 0 {
				return nil, fmt.Errorf("planbuild: unknown column %q", varRef.Name)
			}
			if fn != plan.AggCount {
				resultType = child.Schema.Columns[colIdx].Type
			}
		}
		specs[i] = plan.AggSpec{Func: fn, ColumnIndex: colIdx, ResultTerm: resultName}
		cols[i] = types.Column{ID: i, Name: resultName, Type: resultType}
		terms[i] = types.Term{Name: resultName}
	}
	schema := types.NewSchema(cols, terms)
	return &plan.Node{Kind: plan.NodeAggregation, Left: child, Schema: schema, Aggregates: specs}, nil
}

func aggFunc(name string) (plan.AggFunc, types.ColType, error) {
	switch name {
	case "COUNT":
		return plan.AggCount, types.Int64, nil
	case "SUM":
		return plan.AggSum, types.Int64, nil
	case "AVG":
		return plan.AggAvg, types.Double, nil
	case "MIN":
		return plan.AggMin, types.Int64, nil
	case "MAX":
		return plan.AggMax, types.Int64, nil
	default:
		return 0, 0, fmt.Errorf("planbuild: unsupported aggregate %q", name)
	}
}
