// Package planbuild lowers a parsed internal/sql statement into a logical
// internal/plan tree ready for internal/optimizer.Optimize and, ultimately,
// materialization into internal/exec operators.
//
// What: one Build call per parsed statement, producing the plan.Node the
// rest of the pipeline consumes.
// How: tinySQL has no intermediate plan IR of its own — exec.go
// interprets the parsed AST directly, statement by statement, and
// compile.go is a QueryCache over parsed statements, not a compiler. The
// nearest analogues this package draws on are exec.go's per-statement
// dispatch shape and optimizations.go's extractJoinCondition
// attribute-equality matching, reused here when lowering JOIN ON-clauses.
package planbuild

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/optimizer"
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/types"
)

// Catalog resolves table metadata and index capability during plan
// building. A single concrete type in internal/catalog implements both
// this and optimizer.IndexCatalog, so the engine layer builds one catalog
// value and passes it to both Build and optimizer.Optimize.
type Catalog interface {
	optimizer.IndexCatalog
	Table(name string) (*record.Table, bool)
}

// Build lowers one parsed statement into a logical plan rooted at the
// returned node. The returned tree is unoptimized; callers run it through
// optimizer.Optimize before materializing operators.
func Build(stmt sql.Statement, cat Catalog) (*plan.Node, error) {
	switch s := stmt.(type) {
	case *sql.SelectStmt:
		return buildSelect(s, cat)
	case *sql.InsertStmt:
		return buildInsert(s, cat)
	case *sql.UpdateStmt:
		return buildUpdate(s, cat)
	case *sql.DeleteStmt:
		return buildDelete(s, cat)
	case *sql.CreateTableStmt:
		return buildCreateTable(s), nil
	case *sql.CreateIndexStmt:
		return buildCreateIndex(s), nil
	case *sql.BeginStmt:
		return &plan.Node{Kind: plan.NodeBeginTxn}, nil
	case *sql.CommitStmt:
		return &plan.Node{Kind: plan.NodeCommitTxn}, nil
	case *sql.AbortStmt:
		return &plan.Node{Kind: plan.NodeAbortTxn}, nil
	default:
		return nil, fmt.Errorf("planbuild: unsupported statement %T", stmt)
	}
}

func lookupTable(cat Catalog, name string) (*record.Table, error) {
	t, ok := cat.Table(name)
	if !ok {
		return nil, fmt.Errorf("planbuild: unknown table %q", name)
	}
	return t, nil
}

// aliasSchema re-qualifies every term's Table field to alias, so a later
// column lookup against "alias.col" resolves correctly. Columns/Perm are
// shared with the original schema; only the Terms slice is copied.
func aliasSchema(schema *types.Schema, alias string) *types.Schema {
	if alias == "" {
		return schema
	}
	terms := make([]types.Term, len(schema.Terms))
	for i, t := range schema.Terms {
		terms[i] = types.Term{Table: alias, Name: t.Name, Alias: t.Alias}
	}
	cp := types.NewSchema(schema.Columns, terms)
	return cp.WithPermutation(schema.Perm)
}
