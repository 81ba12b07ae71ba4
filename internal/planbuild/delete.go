package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
)

// buildDelete lowers DELETE into a Scan (optionally wrapped in a
// Selection for WHERE) feeding a NodeDelete.
func buildDelete(s *sql.DeleteStmt, cat Catalog) (*plan.Node, error) {
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
	return &plan.Node{Kind: plan.NodeDelete, Left: child, TableName: table.Name, Schema: table.Schema}, nil
}
