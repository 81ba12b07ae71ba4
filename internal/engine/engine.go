// Package engine wires the Storage Manager, Buffer Manager, Table Disk
// Manager, Transaction Manager, system catalog, logical optimizer, and
// execution engine together behind one Database facade.
//
// What: Database.Open constructs every subsystem from a config.Config and
// bootstraps the catalog; Database.NewSession hands out a Session that
// parses and runs SQL text against it, one statement at a time.
// How: grounded on _teacher_orig/internal/engine/engine.go's
// Database — a struct embedding the storage layer plus a catalog,
// exposing a session type sessions drive through — generalized here to
// route every statement through internal/sql -> internal/planbuild ->
// internal/optimizer -> internal/exec instead of interpreting the parsed
// AST directly.
package engine

import (
	"fmt"

	"github.com/beedb-project/beedb/config"
	"github.com/beedb-project/beedb/internal/bdlog"
	"github.com/beedb-project/beedb/internal/catalog"
	"github.com/beedb-project/beedb/internal/exec"
	"github.com/beedb-project/beedb/internal/optimizer"
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/planbuild"
	"github.com/beedb-project/beedb/internal/sql"
	"github.com/beedb-project/beedb/internal/storage/buffer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

// Database is one open database file plus every subsystem built on top
// of it.
type Database struct {
	cfg    config.Config
	pages  *page.Manager
	pool   *buffer.Pool
	disk   *record.Disk
	txnMgr *txn.Manager
	cat    *catalog.Catalog
}

// Open opens (or creates) the database file at path under cfg, builds
// the storage stack, and bootstraps the system catalog.
func Open(path string, cfg config.Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pages, err := page.Open(path, cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", path, err)
	}
	pool, err := buffer.NewFromConfig(pages, cfg)
	if err != nil {
		pages.Close()
		return nil, err
	}
	disk := record.NewDisk(pool, pages)
	txnMgr := txn.NewManager()

	cat, err := catalog.Bootstrap(disk, txnMgr)
	if err != nil {
		pages.Close()
		return nil, fmt.Errorf("engine: bootstrap catalog: %w", err)
	}

	bdlog.Logger.Info().Str("path", path).Msg("database opened")
	return &Database{cfg: cfg, pages: pages, pool: pool, disk: disk, txnMgr: txnMgr, cat: cat}, nil
}

// Close releases the underlying storage file.
func (db *Database) Close() error {
	return db.pages.Close()
}

// Catalog exposes the system catalog for callers that need table
// metadata outside of running a statement (e.g. a \d meta-command).
func (db *Database) Catalog() *catalog.Catalog { return db.cat }

// Result is what one executed statement produced: a column set and rows
// for a query or a DML statement (whose rows are the ones it touched),
// or nothing for DDL and transaction control.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Session is one client's sequence of statements, carrying whatever
// explicit transaction it currently has open. A nil Txn means autocommit:
// each statement runs and commits in its own transaction.
type Session struct {
	db  *Database
	txn *txn.Transaction
}

// NewSession starts a new autocommit session against db.
func (db *Database) NewSession() *Session {
	return &Session{db: db}
}

// Exec parses one SQL statement and runs it, auto-beginning and
// committing a transaction around it unless the session already has an
// explicit one open via BEGIN.
func (s *Session) Exec(sqlText string) (*Result, error) {
	stmt, err := sql.NewParser(sqlText).ParseStatement()
	if err != nil {
		return nil, fmt.Errorf("engine: parse: %w", err)
	}

	switch stmt.(type) {
	case *sql.BeginStmt:
		if s.txn != nil {
			return nil, fmt.Errorf("engine: transaction already open")
		}
		s.txn = s.db.txnMgr.Begin()
		return &Result{}, nil
	case *sql.CommitStmt:
		if s.txn == nil {
			return nil, fmt.Errorf("engine: no transaction open")
		}
		ok, err := s.db.txnMgr.Commit(s.txn, s.db.disk)
		s.txn = nil
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("engine: commit failed validation")
		}
		return &Result{}, nil
	case *sql.AbortStmt:
		if s.txn == nil {
			return nil, fmt.Errorf("engine: no transaction open")
		}
		err := s.db.txnMgr.Abort(s.txn, s.db.disk)
		s.txn = nil
		return &Result{}, err
	}

	node, err := planbuild.Build(stmt, s.db.cat)
	if err != nil {
		return nil, err
	}
	node = s.db.optimize(node)

	autocommit := s.txn == nil
	active := s.txn
	if autocommit {
		active = s.db.txnMgr.Begin()
	}

	op, err := s.db.materialize(node)
	if err != nil {
		if autocommit {
			s.db.txnMgr.Abort(active, s.db.disk)
		}
		return nil, err
	}

	ctx := &exec.Context{Txn: active, TxnMgr: s.db.txnMgr, Disk: s.db.disk, ScanPageBatch: s.db.cfg.ScanPageBatch}
	tuples, err := exec.Collect(ctx, op)
	if err != nil {
		if autocommit {
			s.db.txnMgr.Abort(active, s.db.disk)
		}
		return nil, err
	}

	if autocommit {
		ok, err := s.db.txnMgr.Commit(active, s.db.disk)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("engine: commit failed validation")
		}
	}

	return resultOf(node.Schema, tuples), nil
}

// resultOf converts materialized tuples into a Result, labeling columns
// from schema's output terms. DDL nodes carry no schema, so they
// surface as an empty Result with no columns.
func resultOf(schema *types.Schema, tuples []*types.Tuple) *Result {
	if schema == nil {
		return &Result{}
	}
	cols := make([]string, schema.NumCols())
	for i := range cols {
		cols[i] = schema.OutputTerm(i).DisplayName()
	}
	rows := make([][]any, len(tuples))
	for i, tup := range tuples {
		row := make([]any, schema.NumCols())
		for j := range row {
			row[j] = tup.Get(schema.Perm[j])
		}
		rows[i] = row
	}
	return &Result{Columns: cols, Rows: rows}
}

// optimize runs the rule set, skipping individual rules the session's
// config has turned off, mirroring config.Config's Optimization* knobs.
func (db *Database) optimize(root *plan.Node) *plan.Node {
	if db.cfg.OptimizationDisable {
		return root
	}
	v := optimizer.NewPlanView(root)
	for _, rule := range optimizer.Rules(db.cat) {
		if !db.ruleEnabled(rule.Name) {
			continue
		}
		for rule.Apply(v) {
		}
	}
	return v.Rebuild()
}

func (db *Database) ruleEnabled(name string) bool {
	switch name {
	case "IndexScanSubstitution":
		return db.cfg.OptimizationIndexScan
	case "HashJoinSubstitution":
		return db.cfg.OptimizationHashJoin
	case "PredicatePushDown":
		return db.cfg.OptimizationPredicatePushDown
	default:
		return true
	}
}
