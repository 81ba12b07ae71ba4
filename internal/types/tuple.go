package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Tuple borrows or owns a byte buffer laid out per Schema and provides
// get/set per physical column index. Equality and ordering delegate to
// per-type comparisons; NULLs are represented by each type's reserved
// sentinel bit pattern (coltype.go).
type Tuple struct {
	Schema *Schema
	Buf    []byte
}

// NewTuple allocates a zero-filled tuple for schema. Zero bytes are not
// the NULL sentinel of any column type, so a column reads as NULL only
// after SetNull (or Set with nil) writes its sentinel.
func NewTuple(schema *Schema) *Tuple {
	return &Tuple{Schema: schema, Buf: make([]byte, schema.RowSize())}
}

// WrapTuple borrows an existing buffer (e.g. a slotted page record) as a
// Tuple without copying.
func WrapTuple(schema *Schema, buf []byte) *Tuple {
	return &Tuple{Schema: schema, Buf: buf}
}

// Clone returns a tuple with its own copy of the backing buffer.
func (t *Tuple) Clone() *Tuple {
	buf := append([]byte(nil), t.Buf...)
	return &Tuple{Schema: t.Schema, Buf: buf}
}

func (t *Tuple) colSlice(i int) []byte {
	c := t.Schema.Columns[i]
	off := t.Schema.Offset(i)
	w := c.Type.FixedWidth(c.Length)
	return t.Buf[off : off+w]
}

// IsNull reports whether physical column i holds the NULL sentinel.
func (t *Tuple) IsNull(i int) bool {
	c := t.Schema.Columns[i]
	b := t.colSlice(i)
	switch c.Type {
	case Int32:
		return int32(binary.LittleEndian.Uint32(b)) == Int32NullSentinel
	case Int64:
		return int64(binary.LittleEndian.Uint64(b)) == Int64NullSentinel
	case Double:
		return IsDoubleNull(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case Date:
		return int64(binary.LittleEndian.Uint64(b)) == DateNullSentinel
	case Char:
		return IsCharNull(b)
	default:
		return false
	}
}

// Get returns the decoded Go value of physical column i, or nil if NULL.
func (t *Tuple) Get(i int) any {
	if t.IsNull(i) {
		return nil
	}
	c := t.Schema.Columns[i]
	b := t.colSlice(i)
	switch c.Type {
	case Int32:
		return int32(binary.LittleEndian.Uint32(b))
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Date:
		return int64(binary.LittleEndian.Uint64(b))
	case Char:
		return strings.TrimRight(string(b), "\x00")
	default:
		panic("types: Get on unsupported column type " + c.Type.String())
	}
}

// SetNull writes the NULL sentinel into physical column i.
func (t *Tuple) SetNull(i int) {
	c := t.Schema.Columns[i]
	b := t.colSlice(i)
	switch c.Type {
	case Int32:
		n := int32(Int32NullSentinel)
		binary.LittleEndian.PutUint32(b, uint32(n))
	case Int64:
		n := int64(Int64NullSentinel)
		binary.LittleEndian.PutUint64(b, uint64(n))
	case Double:
		binary.LittleEndian.PutUint64(b, math.Float64bits(DoubleNullSentinel))
	case Date:
		n := int64(DateNullSentinel)
		binary.LittleEndian.PutUint64(b, uint64(n))
	case Char:
		FillCharNull(b)
	}
}

// Set writes v into physical column i. v==nil sets NULL.
func (t *Tuple) Set(i int, v any) error {
	if v == nil {
		t.SetNull(i)
		return nil
	}
	c := t.Schema.Columns[i]
	b := t.colSlice(i)
	switch c.Type {
	case Int32:
		iv, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("types: column %s expects INT32, got %T", c.Name, v)
		}
		binary.LittleEndian.PutUint32(b, uint32(int32(iv)))
	case Int64:
		iv, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("types: column %s expects INT64, got %T", c.Name, v)
		}
		binary.LittleEndian.PutUint64(b, uint64(iv))
	case Double:
		dv, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("types: column %s expects DOUBLE, got %T", c.Name, v)
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(dv))
	case Date:
		iv, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("types: column %s expects DATE, got %T", c.Name, v)
		}
		binary.LittleEndian.PutUint64(b, uint64(iv))
	case Char:
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("types: column %s expects CHAR, got %T", c.Name, v)
		}
		if len(sv) > len(b) {
			return fmt.Errorf("types: column %s value %q exceeds length %d", c.Name, sv, len(b))
		}
		for j := range b {
			b[j] = 0
		}
		copy(b, sv)
	default:
		return fmt.Errorf("types: unsupported column type %s", c.Type)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Compare orders two values of the same column type. NULL (nil) sorts
// before every non-null value. Returns -1, 0, or 1.
func Compare(t ColType, a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch t {
	case Int32, Int64, Date:
		av, _ := toInt64(a)
		bv, _ := toInt64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Double:
		av, _ := toFloat64(a)
		bv, _ := toFloat64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Char:
		av, _ := a.(string)
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case Bool:
		av, _ := a.(bool)
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if !av && bv {
			return -1
		}
		return 1
	default:
		panic("types: Compare on unsupported type " + t.String())
	}
}

// Equal reports whether two tuples under the same schema hold equal bytes
// column-by-column (NULL == NULL here, unlike SQL three-valued equality —
// this is used for structural comparisons like hash-join keys and ORDER
// BY tie-breaking, not WHERE-clause predicate evaluation).
func Equal(schema *Schema, a, b *Tuple) bool {
	for i, c := range schema.Columns {
		if Compare(c.Type, a.Get(i), b.Get(i)) != 0 {
			return false
		}
	}
	return true
}
