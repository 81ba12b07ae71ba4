package planbuild

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/types"
)

func buildCreateTable(s *sql.CreateTableStmt) *plan.Node {
	cols := make([]types.Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = types.Column{
			ID:       i,
			Name:     c.Name,
			Type:     colType(c.Type),
			Length:   c.Length,
			Nullable: !c.PrimaryKey && !c.NotNull,
		}
	}
	return &plan.Node{Kind: plan.NodeCreateTable, TableName: s.Name, NewColumns: cols}
}

// colType maps a parsed column-type keyword onto the storage layer's
// narrower ColType set. INTEGER/INT collapse to Int32, BIGINT to Int64,
// FLOAT to Double, VARCHAR to Char (fixed-width storage has no distinct
// variable-length representation; see internal/types' package doc).
func colType(keyword string) types.ColType {
	switch keyword {
	case "INT", "INTEGER":
		return types.Int32
	case "BIGINT":
		return types.Int64
	case "DOUBLE", "FLOAT":
		return types.Double
	case "CHAR", "VARCHAR":
		return types.Char
	case "DATE":
		return types.Date
	default:
		return types.Int32
	}
}

func buildCreateIndex(s *sql.CreateIndexStmt) *plan.Node {
	using := s.Using
	if using == "" {
		using = "hash"
	}
	return &plan.Node{
		Kind:         plan.NodeCreateIndex,
		TableName:    s.Table,
		NewIndexName: s.Name,
		IndexColumn:  s.Column,
		IndexUnique:  s.Unique,
		IndexKind:    using,
	}
}
