package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/storage/record"
)

// buildInsert evaluates every VALUES row's literal expressions to concrete
// Go values at build time: plan.Node.InsertRows and exec.Insert.Rows are
// static [][]any, not expression trees, so there is no child operator for
// an Insert node to evaluate against; the Insert operator takes literal
// rows directly.
func buildInsert(s *sql.InsertStmt, cat Catalog) (*plan.Node, error) {
	table, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}

	colOrder, err := insertColumnOrder(table, s.Columns)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, len(s.Rows))
	for r, exprRow := range s.Rows {
		if len(exprRow) != len(colOrder) {
			return nil, fmt.Errorf("planbuild: row %d has %d values, expected %d", r, len(exprRow), len(colOrder))
		}
		row := make([]any, len(table.Schema.Columns))
		for i := range row {
			row[i] = nil
		}
		for i, e := range exprRow {
			v, err := evalLiteral(e)
			if err != nil {
				return nil, fmt.Errorf("planbuild: row %d, column %d: %w", r, i, err)
			}
			row[colOrder[i]] = v
		}
		rows[r] = row
	}

	return &plan.Node{Kind: plan.NodeInsert, TableName: table.Name, Schema: table.Schema, InsertRows: rows}, nil
}

// insertColumnOrder maps an (optional) explicit column list onto the
// table's physical column positions; an absent list defaults to the
// table's declared order.
func insertColumnOrder(table *record.Table, columns []string) ([]int, error) {
	if len(columns) == 0 {
		order := make([]int, len(table.Schema.Columns))
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	order := make([]int, len(columns))
	for i, name := range columns {
		idx := table.Schema.Find("", name)
		if idx < 0 {
			return nil, fmt.Errorf("planbuild: unknown column %q", name)
		}
		order[i] = idx
	}
	return order, nil
}

// evalLiteral reduces a constant VALUES-clause expression (a literal, or a
// unary-minus'd numeric literal) to the Go value it denotes.
func evalLiteral(e sql.Expr) (any, error) {
	switch x := e.(type) {
	case *sql.Literal:
		return x.Val, nil
	case *sql.Unary:
		if x.Op != "-" {
			return nil, fmt.Errorf("unsupported unary operator %q in constant expression", x.Op)
		}
		inner, err := evalLiteral(x.Expr)
		if err != nil {
			return nil, err
		}
		switch n := inner.(type) {
		case int:
			return -n, nil
		case float64:
			return -n, nil
		default:
			return nil, fmt.Errorf("cannot negate %T", inner)
		}
	default:
		return nil, fmt.Errorf("expected a constant expression, got %T", e)
	}
}
