package types

import "fmt"

// Column describes one stored attribute: its identity, type, nullability,
// and any indexes attached to it.
type Column struct {
	ID       int
	Name     string
	Type     ColType
	Length   int // meaningful only for Char
	Nullable bool
	Indexes  []IndexRef
}

// IndexRef is the capability summary an optimizer rule needs to decide
// whether an index can serve a predicate — the index implementation itself
// lives outside the core.
type IndexRef struct {
	Name   string
	Unique bool
	Range  bool // supports <, <=, >, >= in addition to =
}

// Term names the table-qualified attribute (or synthetic alias) that a
// schema's column at the same position yields — used by predicate
// push-down to decide attribute availability and by projection to label
// output columns.
type Term struct {
	Table string // empty for a synthetic/computed column
	Name  string
	Alias string // display name, defaults to Name if empty
}

// DisplayName returns the Alias if set, else Name.
func (t Term) DisplayName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Qualified returns "table.name", or just "name" if Table is empty.
func (t Term) Qualified() string {
	if t.Table == "" {
		return t.Name
	}
	return t.Table + "." + t.Name
}

// Schema is an ordered list of columns plus the parallel term list and
// output permutation. Columns/Terms describe the schema's *physical*
// storage layout; Perm gives the *output* column order a caller should
// read them in (identity by default).
type Schema struct {
	Columns []Column
	Terms   []Term
	Perm    []int

	offsets []int
	rowSize int
}

// NewSchema builds a Schema from parallel columns/terms, computing byte
// offsets and total row size, with an identity output permutation.
func NewSchema(columns []Column, terms []Term) *Schema {
	if len(terms) != len(columns) {
		panic(fmt.Sprintf("types: schema has %d columns but %d terms", len(columns), len(terms)))
	}
	s := &Schema{Columns: columns, Terms: terms}
	s.recomputeLayout()
	s.Perm = identityPerm(len(columns))
	return s
}

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func (s *Schema) recomputeLayout() {
	s.offsets = make([]int, len(s.Columns))
	off := 0
	for i, c := range s.Columns {
		s.offsets[i] = off
		off += c.Type.FixedWidth(c.Length)
	}
	s.rowSize = off
}

// Offset returns the byte offset of physical column i.
func (s *Schema) Offset(i int) int { return s.offsets[i] }

// RowSize returns the total packed byte width of one tuple under this
// schema (physical layout, independent of Perm).
func (s *Schema) RowSize() int { return s.rowSize }

// NumCols returns the number of output columns (== len(Perm)).
func (s *Schema) NumCols() int { return len(s.Perm) }

// OutputColumn returns the i-th output column, honoring Perm.
func (s *Schema) OutputColumn(i int) Column { return s.Columns[s.Perm[i]] }

// OutputTerm returns the i-th output term, honoring Perm.
func (s *Schema) OutputTerm(i int) Term { return s.Terms[s.Perm[i]] }

// WithPermutation returns a shallow copy of s with a new output order.
func (s *Schema) WithPermutation(perm []int) *Schema {
	cp := *s
	cp.Perm = append([]int(nil), perm...)
	return &cp
}

// Find returns the physical column index whose term matches name, trying
// qualified ("table.col") then bare ("col") forms. Returns -1 if absent.
func (s *Schema) Find(table, name string) int {
	for i, t := range s.Terms {
		if table != "" && t.Table == table && t.Name == name {
			return i
		}
	}
	if table == "" {
		for i, t := range s.Terms {
			if t.Name == name || t.Alias == name {
				return i
			}
		}
	}
	return -1
}

// ProvidesAll reports whether every (table,name) pair in refs resolves in
// this schema — the attribute-availability test the optimizer's
// PredicatePushDown rule uses.
func (s *Schema) ProvidesAll(refs []AttrRef) bool {
	for _, r := range refs {
		if s.Find(r.Table, r.Name) < 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and other expose the same output terms, in the
// same order — the test RemoveProjection uses to
// decide a Projection contributes nothing beyond its child.
func (s *Schema) Equal(other *Schema) bool {
	if s.NumCols() != other.NumCols() {
		return false
	}
	for i := 0; i < s.NumCols(); i++ {
		a, b := s.OutputTerm(i), other.OutputTerm(i)
		if a.Table != b.Table || a.Name != b.Name || a.Alias != b.Alias {
			return false
		}
	}
	return true
}

// AttrRef is a bare attribute reference (table-qualified name) independent
// of any particular schema — used to describe "the attributes a predicate
// touches" without importing the expression package.
type AttrRef struct {
	Table string
	Name  string
}

// Concat returns a new schema whose columns/terms are the receiver's
// followed by other's, with a fresh identity permutation — the schema a
// CrossProduct or Join produces by concatenating tuples in schema order.
func (s *Schema) Concat(other *Schema) *Schema {
	cols := make([]Column, 0, len(s.Columns)+len(other.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, other.Columns...)

	terms := make([]Term, 0, len(s.Terms)+len(other.Terms))
	terms = append(terms, s.Terms...)
	terms = append(terms, other.Terms...)

	return NewSchema(cols, terms)
}
