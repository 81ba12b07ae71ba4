package engine

import (
	"fmt"

	"github.com/beedb-project/beedb/internal/exec"
	"github.com/beedb-project/beedb/internal/plan"
)

// materialize turns one optimized plan.Node into the internal/exec
// operator tree that actually runs it. Each NodeKind it handles maps onto
// exactly one internal/exec operator type; any other kind is an error.
func (db *Database) materialize(n *plan.Node) (exec.Operator, error) {
	switch n.Kind {
	case plan.NodeScan:
		t, ok := db.cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown table %q", n.TableName)
		}
		return &exec.TableScan{Table: t, Schema: n.Schema}, nil

	case plan.NodeIndexScan:
		t, ok := db.cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown table %q", n.TableName)
		}
		idx, ok := db.cat.Index(n.TableName, n.IndexName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown index %q on table %q", n.IndexName, n.TableName)
		}
		ranges := make([]exec.KeyRange, len(n.KeyRanges))
		for i, kr := range n.KeyRanges {
			ranges[i] = exec.KeyRange{Column: kr.Column, Op: int(kr.Op), Lit: kr.Lit}
		}
		return &exec.IndexScan{Table: t, Schema: n.Schema, Index: idx, KeyRanges: ranges}, nil

	case plan.NodeSelection:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Selection{Child: child, Schema: n.Schema, Predicate: n.Predicate}, nil

	case plan.NodeProjection:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Projection{Child: child, InSchema: n.Left.Schema, OutSchema: n.Schema, Terms: n.ProjectTerms}, nil

	case plan.NodeArithmetic:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Arithmetic{Child: child, InSchema: n.Left.Schema, OutSchema: n.Schema, Specs: n.ArithSpecs}, nil

	case plan.NodeLimit:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Limit{Child: child, Limit: n.Limit, Offset: n.Offset}, nil

	case plan.NodeOrder:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Order{Child: child, Schema: n.Schema, Keys: n.OrderKeys}, nil

	case plan.NodeCrossProduct:
		left, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := db.materialize(n.Right)
		if err != nil {
			return nil, err
		}
		return &exec.CrossProduct{Left: left, Right: right, Schema: n.Schema}, nil

	case plan.NodeNestedLoopsJoin:
		left, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := db.materialize(n.Right)
		if err != nil {
			return nil, err
		}
		return exec.NewNestedLoopsJoin(left, right, n.Schema, n.JoinPredicate), nil

	case plan.NodeHashJoin:
		left, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := db.materialize(n.Right)
		if err != nil {
			return nil, err
		}
		return &exec.HashJoin{Left: left, Right: right, Schema: n.Schema, LeftKeyIndex: n.LeftKeyIndex, RightKeyIndex: n.RightKeyIndex}, nil

	case plan.NodeAggregation:
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Aggregation{Child: child, InSchema: n.Left.Schema, OutSchema: n.Schema, Specs: n.Aggregates}, nil

	case plan.NodeInsert:
		t, ok := db.cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown table %q", n.TableName)
		}
		var child exec.Operator
		if n.Left != nil {
			var err error
			child, err = db.materialize(n.Left)
			if err != nil {
				return nil, err
			}
		}
		return &exec.Insert{Child: child, Table: t, Schema: n.Schema, Rows: n.InsertRows}, nil

	case plan.NodeUpdate:
		t, ok := db.cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown table %q", n.TableName)
		}
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Update{Child: child, Table: t, Schema: n.Schema, Assignments: n.Assignments}, nil

	case plan.NodeDelete:
		t, ok := db.cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("engine: unknown table %q", n.TableName)
		}
		child, err := db.materialize(n.Left)
		if err != nil {
			return nil, err
		}
		return &exec.Delete{Child: child, Table: t, Schema: n.Schema}, nil

	case plan.NodeCreateTable:
		return &exec.CreateTable{Catalog: db.cat, Name: n.TableName, Columns: n.NewColumns}, nil

	case plan.NodeCreateIndex:
		return &exec.CreateIndex{Catalog: db.cat, Name: n.NewIndexName, Table: n.TableName, Column: n.IndexColumn, Unique: n.IndexUnique, Kind: n.IndexKind}, nil

	default:
		return nil, fmt.Errorf("engine: no materialization for plan node %s", n.Kind)
	}
}
