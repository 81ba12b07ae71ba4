package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
)

// buildUpdate lowers UPDATE into a Scan (optionally wrapped in a
// Selection for WHERE) feeding a NodeUpdate, whose Assignments resolve
// each SET target to its physical column index.
func buildUpdate(s *sql.UpdateStmt, cat Catalog) (*plan.Node, error) {
	table, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}
	child := &plan.Node{Kind: plan.NodeScan, TableName: table.Name, Schema: table.Schema}
	if s.Where != nil {
		pred, err := lowerExpr(s.Where, table.Schema)
		if err != nil {
			return nil, fmt.Errorf("planbuild: where clause: %w", err)
		}
		child = &plan.Node{Kind: plan.NodeSelection, Left: child, Schema: table.Schema, Predicate: pred}
	}

	assigns := make([]plan.AssignSpec, len(s.Sets))
	for i, set := range s.Sets {
		idx := table.Schema.Find("", set.Column)
		if idx < 0 {
			return nil, fmt.Errorf("planbuild: unknown column %q", set.Column)
		}
		e, err := lowerExpr(set.Value, table.Schema)
		if err != nil {
			return nil, fmt.Errorf("planbuild: set %s: %w", set.Column, err)
		}
		assigns[i] = plan.AssignSpec{ColumnIndex: idx, NewValue: e}
	}

	return &plan.Node{Kind: plan.NodeUpdate, Left: child, TableName: table.Name, Schema: table.Schema, Assignments: assigns}, nil
}
