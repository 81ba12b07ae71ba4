package catalog

import (
	"fmt"
	"sync"

	"github.com/beedb-project/beedb/internal/exec"
	"github.com/beedb-project/beedb/internal/optimizer"
	"github.com/beedb-project/beedb/internal/storage/page"
	"github.com/beedb-project/beedb/internal/storage/record"
	"github.com/beedb-project/beedb/internal/storage/txn"
	"github.com/beedb-project/beedb/internal/types"
)

// Catalog owns every table and index descriptor known to the database,
// including the four system tables that describe the rest. It satisfies
// internal/exec.Catalog, internal/planbuild.Catalog, and
// internal/optimizer.IndexCatalog, so a single value threads through the
// whole query pipeline.
type Catalog struct {
	disk   *record.Disk
	txnMgr *txn.Manager

	mu          sync.RWMutex
	tables      map[string]*record.Table
	indexes     map[string]*indexEntry // keyed by "table.column"
	nextTableID uint32
	nextColID   int32
	nextIdxID   int32
}

type indexEntry struct {
	Name   string
	Table  string
	Column string
	ColIdx int
	Unique bool
	Kind   string
	Handle *memoryIndex
}

// Bootstrap opens (or initializes, on an empty file) the system catalog
// against disk/txnMgr and returns a ready Catalog. On an empty file the
// four system tables' first pages are allocated in this fixed order,
// which is what gives them the first page ids the underlying
// page.Manager ever hands out (dense from 0, per its own doc comment —
// "well-known starting page ids 1..4" realized modulo the
// zero-based numbering this storage layer uses throughout).
func Bootstrap(disk *record.Disk, txnMgr *txn.Manager) (*Catalog, error) {
	sys := bootstrapSystemTables()
	c := &Catalog{
		disk:        disk,
		txnMgr:      txnMgr,
		tables:      make(map[string]*record.Table),
		indexes:     make(map[string]*indexEntry),
		nextTableID: 5, // 1..4 are reserved for the system tables
	}
	for _, t := range sys {
		c.tables[t.Name] = t
	}

	fresh := disk.PageCount() == 0
	if fresh {
		if err := c.seedSystemTables(sys); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := c.loadFromSystemTables(); err != nil {
		return nil, err
	}
	return c, nil
}

// seedSystemTables inserts each system table's own descriptor row into
// system_tables (and its columns into system_columns), bringing a fresh
// database file to the same state a reopened one loads back via
// loadFromSystemTables.
func (c *Catalog) seedSystemTables(sys []*record.Table) error {
	tx := c.txnMgr.Begin()
	rids := make([]record.RID, len(sys))
	for i, t := range sys {
		rid, err := c.insertTableRow(tx, t)
		if err != nil {
			c.txnMgr.Abort(tx, c.disk)
			return err
		}
		rids[i] = rid
		if err := c.insertColumnRows(tx, t); err != nil {
			c.txnMgr.Abort(tx, c.disk)
			return err
		}
	}

	// Inserting system_tables' own first row is what allocates
	// system_tables' chain in the first place, so that row's first_page
	// column was captured before the page existed. Every row above was
	// written with whatever FirstMainPage/FirstTTPage its table had at
	// the time, which for self-describing system_tables is stale by the
	// time the loop finishes; revisit every row now that all four
	// chains are in their final state.
	sysTables := c.tables[TableSystemTables]
	for i, t := range sys {
		mainPage, ttPage := t.FirstMainPage, t.FirstTTPage
		err := c.txnMgr.Update(tx, c.disk, sysTables, rids[i], func(row *types.Tuple) error {
			if err := row.Set(2, int64(mainPage)); err != nil {
				return err
			}
			return row.Set(3, int64(ttPage))
		})
		if err != nil {
			c.txnMgr.Abort(tx, c.disk)
			return err
		}
	}

	if ok, err := c.txnMgr.Commit(tx, c.disk); err != nil || !ok {
		return fmt.Errorf("catalog: bootstrap commit failed: ok=%v err=%w", ok, err)
	}
	return nil
}

func (c *Catalog) insertTableRow(tx *txn.Transaction, t *record.Table) (record.RID, error) {
	sysTables := c.tables[TableSystemTables]
	row := types.NewTuple(sysTables.Schema)
	if err := row.Set(0, int32(t.ID)); err != nil {
		return record.InvalidRID, err
	}
	if err := row.Set(1, t.Name); err != nil {
		return record.InvalidRID, err
	}
	if err := row.Set(2, int64(t.FirstMainPage)); err != nil {
		return record.InvalidRID, err
	}
	if err := row.Set(3, int64(t.FirstTTPage)); err != nil {
		return record.InvalidRID, err
	}
	return c.txnMgr.Insert(tx, c.disk, sysTables, row)
}

func (c *Catalog) insertColumnRows(tx *txn.Transaction, t *record.Table) error {
	sysCols := c.tables[TableSystemColumns]
	for _, col := range t.Schema.Columns {
		row := types.NewTuple(sysCols.Schema)
		if err := row.Set(0, c.nextColID); err != nil {
			return err
		}
		c.nextColID++
		if err := row.Set(1, int32(t.ID)); err != nil {
			return err
		}
		if err := row.Set(2, typeID(col.Type)); err != nil {
			return err
		}
		if err := row.Set(3, int32(col.Length)); err != nil {
			return err
		}
		if err := row.Set(4, col.Name); err != nil {
			return err
		}
		if err := row.Set(5, boolToInt32(col.Nullable)); err != nil {
			return err
		}
		if _, err := c.txnMgr.Insert(tx, c.disk, sysCols, row); err != nil {
			return err
		}
	}
	return nil
}

// loadFromSystemTables rebuilds every table/column/index descriptor by
// scanning the four system tables with internal/exec's own TableScan
// operator — the execution engine reading its own bootstrap data.
func (c *Catalog) loadFromSystemTables() error {
	tx := c.txnMgr.Begin()
	defer c.txnMgr.Abort(tx, c.disk) // a read-only scan never needs to commit

	ctx := &exec.Context{Txn: tx, TxnMgr: c.txnMgr, Disk: c.disk, ScanPageBatch: 4}

	tableRows, err := exec.Collect(ctx, &exec.TableScan{Table: c.tables[TableSystemTables], Schema: c.tables[TableSystemTables].Schema})
	if err != nil {
		return fmt.Errorf("catalog: load system_tables: %w", err)
	}
	byID := make(map[int32]*record.Table, len(tableRows))
	for _, row := range tableRows {
		id := row.Get(0).(int32)
		name := row.Get(1).(string)
		t := &record.Table{
			ID:            uint32(id),
			Name:          name,
			FirstMainPage: page.ID(row.Get(2).(int64)),
			FirstTTPage:   page.ID(row.Get(3).(int64)),
		}
		byID[id] = t
		if uint32(id) >= c.nextTableID {
			c.nextTableID = uint32(id) + 1
		}
	}

	colRows, err := exec.Collect(ctx, &exec.TableScan{Table: c.tables[TableSystemColumns], Schema: c.tables[TableSystemColumns].Schema})
	if err != nil {
		return fmt.Errorf("catalog: load system_columns: %w", err)
	}
	colsByTable := make(map[int32][]types.Column)
	termsByTable := make(map[int32][]types.Term)
	for _, row := range colRows {
		colID := row.Get(0).(int32)
		tableID := row.Get(1).(int32)
		col := types.Column{
			ID:       int(colID),
			Name:     row.Get(4).(string),
			Type:     typeFromID(row.Get(2).(int32)),
			Length:   int(row.Get(3).(int32)),
			Nullable: int32ToBool(row.Get(5).(int32)),
		}
		colsByTable[tableID] = append(colsByTable[tableID], col)
		if colID >= c.nextColID {
			c.nextColID = colID + 1
		}
	}
	for id, t := range byID {
		terms := make([]types.Term, len(colsByTable[id]))
		for i, col := range colsByTable[id] {
			terms[i] = types.Term{Table: t.Name, Name: col.Name}
		}
		termsByTable[id] = terms
		t.Schema = types.NewSchema(colsByTable[id], terms)
		c.tables[t.Name] = t
	}

	idxRows, err := exec.Collect(ctx, &exec.TableScan{Table: c.tables[TableSystemIndices], Schema: c.tables[TableSystemIndices].Schema})
	if err != nil {
		return fmt.Errorf("catalog: load system_indices: %w", err)
	}
	for _, row := range idxRows {
		idxID := row.Get(0).(int32)
		colID := row.Get(1).(int32)
		name := row.Get(3).(string)
		unique := int32ToBool(row.Get(4).(int32))
		table, column := c.findColumnOwner(colID)
		if table == "" {
			continue
		}
		entry := &indexEntry{Name: name, Table: table, Column: column, Unique: unique, Kind: "hash", Handle: newMemoryIndex()}
		c.indexes[table+"."+column] = entry
		if idxID >= c.nextIdxID {
			c.nextIdxID = idxID + 1
		}
		if err := c.rebuildIndex(entry); err != nil {
			return err
		}
	}
	return nil
}

// findColumnOwner is only needed while reloading system_indices, which
// persists a column_id rather than a (table, column) pair; it is a small
// linear scan over an already in-memory catalog, not a hot path.
func (c *Catalog) findColumnOwner(colID int32) (table, column string) {
	for name, t := range c.tables {
		for _, col := range t.Schema.Columns {
			if int32(col.ID) == colID {
				return name, col.Name
			}
		}
	}
	return "", ""
}

func (c *Catalog) rebuildIndex(entry *indexEntry) error {
	table := c.tables[entry.Table]
	colIdx := table.Schema.Find("", entry.Column)
	if colIdx < 0 {
		return fmt.Errorf("catalog: index %s refers to unknown column %s.%s", entry.Name, entry.Table, entry.Column)
	}
	entry.ColIdx = colIdx

	tx := c.txnMgr.Begin()
	defer c.txnMgr.Abort(tx, c.disk)
	ctx := &exec.Context{Txn: tx, TxnMgr: c.txnMgr, Disk: c.disk, ScanPageBatch: 4}
	builder := &exec.BuildIndex{
		Table:       table,
		Schema:      table.Schema,
		ColumnIndex: colIdx,
		Target:      entry.Handle,
	}
	return exec.Run(ctx, builder, func(*types.Tuple) error { return nil })
}

// Table implements internal/planbuild.Catalog.
func (c *Catalog) Table(name string) (*record.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// IndexFor implements internal/optimizer.IndexCatalog.
func (c *Catalog) IndexFor(table, column string) (optimizer.IndexCapability, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.indexes[table+"."+column]
	if !ok {
		return optimizer.IndexCapability{}, false
	}
	return optimizer.IndexCapability{Name: entry.Name, Unique: entry.Unique, Range: entry.Kind == "btree"}, true
}

// Index returns the concrete lookup handle internal/exec's IndexScan
// operator needs, resolved by table and index name (distinct from IndexFor,
// which the optimizer uses purely to decide applicability).
func (c *Catalog) Index(table, name string) (exec.IndexLookup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.indexes {
		if entry.Table == table && entry.Name == name {
			return entry.Handle, true
		}
	}
	return nil, false
}

// CreateTable implements internal/exec.Catalog.
func (c *Catalog) CreateTable(name string, columns []types.Column) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; exists {
		return fmt.Errorf("catalog: table %q already exists", name)
	}

	terms := make([]types.Term, len(columns))
	for i, col := range columns {
		columns[i].ID = int(c.nextColID) + i
		terms[i] = types.Term{Table: name, Name: col.Name}
	}
	c.nextColID += int32(len(columns))

	t := &record.Table{
		ID:            c.nextTableID,
		Name:          name,
		Schema:        types.NewSchema(columns, terms),
		FirstMainPage: page.InvalidID,
		FirstTTPage:   page.InvalidID,
	}
	c.nextTableID++

	tx := c.txnMgr.Begin()
	if _, err := c.insertTableRow(tx, t); err != nil {
		c.txnMgr.Abort(tx, c.disk)
		return err
	}
	if err := c.insertColumnRows(tx, t); err != nil {
		c.txnMgr.Abort(tx, c.disk)
		return err
	}
	if ok, err := c.txnMgr.Commit(tx, c.disk); err != nil || !ok {
		return fmt.Errorf("catalog: create table %q: commit ok=%v err=%w", name, ok, err)
	}

	c.tables[name] = t
	return nil
}

// CreateIndex implements internal/exec.Catalog.
func (c *Catalog) CreateIndex(name, table, column string, unique bool, kind string) error {
	c.mu.Lock()
	t, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("catalog: unknown table %q", table)
	}
	colIdx := t.Schema.Find("", column)
	if colIdx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("catalog: unknown column %q on table %q", column, table)
	}
	entry := &indexEntry{Name: name, Table: table, Column: column, ColIdx: colIdx, Unique: unique, Kind: kind, Handle: newMemoryIndex()}
	idxID := c.nextIdxID
	c.nextIdxID++
	c.indexes[table+"."+column] = entry
	c.mu.Unlock()

	tx := c.txnMgr.Begin()
	sysIdx := c.tables[TableSystemIndices]
	row := types.NewTuple(sysIdx.Schema)
	if err := row.Set(0, idxID); err != nil {
		return err
	}
	if err := row.Set(1, int32(t.Schema.Columns[colIdx].ID)); err != nil {
		return err
	}
	if err := row.Set(2, int32(0)); err != nil {
		return err
	}
	if err := row.Set(3, name); err != nil {
		return err
	}
	if err := row.Set(4, boolToInt32(unique)); err != nil {
		return err
	}
	if _, err := c.txnMgr.Insert(tx, c.disk, sysIdx, row); err != nil {
		c.txnMgr.Abort(tx, c.disk)
		return err
	}
	if ok, err := c.txnMgr.Commit(tx, c.disk); err != nil || !ok {
		return fmt.Errorf("catalog: create index %q: commit ok=%v err=%w", name, ok, err)
	}

	return c.rebuildIndex(entry)
}
