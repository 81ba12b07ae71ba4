package exec

import "github.com/beedb-project/beedb/internal/types"

// Catalog is the subset of the system catalog DDL operators need — kept
// as an interface here so internal/exec stays free of a dependency on
// internal/catalog. Each DDL operator is single-shot: it invokes the
// catalog update once and reports no rows.
type Catalog interface {
	CreateTable(name string, columns []types.Column) error
	CreateIndex(name, table, column string, unique bool, kind string) error
}

// CreateTable is a single-shot DDL operator.
type CreateTable struct {
	Catalog Catalog
	Name    string
	Columns []types.Column

	done bool
}

func (c *CreateTable) Open(ctx *Context) error { c.done = false; return nil }

func (c *CreateTable) Next() (*types.Tuple, error) {
	if c.done {
		return nil, nil
	}
	c.done = true
	if err := c.Catalog.CreateTable(c.Name, c.Columns); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *CreateTable) Close() error { return nil }

// CreateIndex is a single-shot DDL operator.
type CreateIndex struct {
	Catalog Catalog
	Name    string
	Table   string
	Column  string
	Unique  bool
	Kind    string

	done bool
}

func (c *CreateIndex) Open(ctx *Context) error { c.done = false; return nil }

func (c *CreateIndex) Next() (*types.Tuple, error) {
	if c.done {
		return nil, nil
	}
	c.done = true
	if err := c.Catalog.CreateIndex(c.Name, c.Table, c.Column, c.Unique, c.Kind); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *CreateIndex) Close() error { return nil }
