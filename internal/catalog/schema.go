// Package catalog implements the system catalog: the four reserved tables
// that describe every other table, column, index, and cardinality
// estimate in the database, plus the in-memory index handles that back
// internal/exec's IndexScan/BuildIndex operators.
//
// What: a Catalog type satisfying internal/exec's Catalog interface,
// internal/planbuild's Catalog interface, and internal/optimizer's
// IndexCatalog interface, so one value threads through the whole
// sql -> planbuild -> optimizer -> exec pipeline.
// How: system_tables/system_columns/system_indices/system_statistics are
// loaded at boot by issuing a scan against them through the engine
// itself — but internal/engine's Database facade
// necessarily depends on internal/catalog (it wires every subsystem
// together, catalog included), so a literal reading would create an
// import cycle. This package instead drives internal/exec's TableScan
// operator directly (the execution engine itself, one layer below the
// facade) to read its own bootstrap rows, which realizes the same idea —
// querying the catalog's own tables to load the catalog — without the
// cycle.
package catalog

import (
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// System table names.
const (
	TableSystemTables     = "system_tables"
	TableSystemColumns    = "system_columns"
	TableSystemIndices    = "system_indices"
	TableSystemStatistics = "system_statistics"
)

func systemTablesSchema() *types.Schema {
	return types.NewSchema(
		[]types.Column{
			{ID: 0, Name: "table_id", Type: types.Int32},
			{ID: 1, Name: "name", Type: types.Char, Length: 64},
			{ID: 2, Name: "first_page", Type: types.Int64},
			{ID: 3, Name: "time_travel_page", Type: types.Int64},
		},
		[]types.Term{
			{Table: TableSystemTables, Name: "table_id"},
			{Table: TableSystemTables, Name: "name"},
			{Table: TableSystemTables, Name: "first_page"},
			{Table: TableSystemTables, Name: "time_travel_page"},
		},
	)
}

func systemColumnsSchema() *types.Schema {
	return types.NewSchema(
		[]types.Column{
			{ID: 0, Name: "column_id", Type: types.Int32},
			{ID: 1, Name: "table_id", Type: types.Int32},
			{ID: 2, Name: "type_id", Type: types.Int32},
			{ID: 3, Name: "length", Type: types.Int32},
			{ID: 4, Name: "name", Type: types.Char, Length: 64},
			{ID: 5, Name: "nullable", Type: types.Int32},
		},
		[]types.Term{
			{Table: TableSystemColumns, Name: "column_id"},
			{Table: TableSystemColumns, Name: "table_id"},
			{Table: TableSystemColumns, Name: "type_id"},
			{Table: TableSystemColumns, Name: "length"},
			{Table: TableSystemColumns, Name: "name"},
			{Table: TableSystemColumns, Name: "nullable"},
		},
	)
}

func systemIndicesSchema() *types.Schema {
	return types.NewSchema(
		[]types.Column{
			{ID: 0, Name: "index_id", Type: types.Int32},
			{ID: 1, Name: "column_id", Type: types.Int32},
			{ID: 2, Name: "type_id", Type: types.Int32},
			{ID: 3, Name: "name", Type: types.Char, Length: 64},
			{ID: 4, Name: "unique", Type: types.Int32},
		},
		[]types.Term{
			{Table: TableSystemIndices, Name: "index_id"},
			{Table: TableSystemIndices, Name: "column_id"},
			{Table: TableSystemIndices, Name: "type_id"},
			{Table: TableSystemIndices, Name: "name"},
			{Table: TableSystemIndices, Name: "unique"},
		},
	)
}

func systemStatisticsSchema() *types.Schema {
	return types.NewSchema(
		[]types.Column{
			{ID: 0, Name: "table_id", Type: types.Int32},
			{ID: 1, Name: "cardinality", Type: types.Int64},
		},
		[]types.Term{
			{Table: TableSystemStatistics, Name: "table_id"},
			{Table: TableSystemStatistics, Name: "cardinality"},
		},
	)
}

// bootstrapSystemTables returns the four system Table descriptors, each
// starting empty (page.InvalidID); Bootstrap assigns their first pages in
// a fixed order, which on a freshly created storage file gives them the
// first four page ids ever allocated.
func bootstrapSystemTables() []*record.Table {
	return []*record.Table{
		{ID: 1, Name: TableSystemTables, Schema: systemTablesSchema(), FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
		{ID: 2, Name: TableSystemColumns, Schema: systemColumnsSchema(), FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
		{ID: 3, Name: TableSystemIndices, Schema: systemIndicesSchema(), FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
		{ID: 4, Name: TableSystemStatistics, Schema: systemStatisticsSchema(), FirstMainPage: page.InvalidID, FirstTTPage: page.InvalidID},
	}
}

// typeID/typeFromID translate between types.ColType and the small integer
// system_columns/system_indices persist, independent of ColType's own
// iota ordering so a future reordering of ColType cannot silently corrupt
// an existing catalog.
func typeID(t types.ColType) int32 {
	switch t {
	case types.Int32:
		return 0
	case types.Int64:
		return 1
	case types.Double:
		return 2
	case types.Char:
		return 3
	case types.Date:
		return 4
	default:
		return 0
	}
}

func typeFromID(id int32) types.ColType {
	switch id {
	case 0:
		return types.Int32
	case 1:
		return types.Int64
	case 2:
		return types.Double
	case 3:
		return types.Char
	case 4:
		return types.Date
	default:
		return types.Int32
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func int32ToBool(v int32) bool { return v != 0 }
