// Package types defines the column/schema/tuple data model shared by the
// Table layer, the Execution Engine, and the Optimizer.
//
// What: a narrow column type set (INT32, INT64, DOUBLE, CHAR(n), DATE) plus
// an internal BOOL expression-result type, fixed-width per-column byte
// layout, and a reserved null sentinel per type.
// How: grounded on tinySQL's storage.ColType enum (db.go), but
// deliberately narrowed to a small closed set instead of
// tinySQL's much larger JSON/vector/complex-number surface — BeeDB's
// column set is a closed, fixed-width set by design so Schema can compute
// byte offsets ahead of time, which tinySQL's variable-width []any row
// representation does not need to do.
// Why: fixed-width columns make the slotted record page's "read exactly
// this many bytes at this offset" contract trivial, and let comparisons
// for Order/Aggregation operate directly on decoded Go values.
package types

import "math"

// ColType enumerates the storable column types, plus Bool, which is
// never a storable column type — only the result type of a
// comparison/logical expression.
type ColType int

const (
	Int32 ColType = iota
	Int64
	Double
	Char // fixed-length CHAR(n); width carried on the Column, not the type
	Date // stored as an int64 day-number relative to the Unix epoch
	Bool // expression-result only, never a Column's storage type
)

func (t ColType) String() string {
	switch t {
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Double:
		return "DOUBLE"
	case Char:
		return "CHAR"
	case Date:
		return "DATE"
	case Bool:
		return "BOOL"
	default:
		return "UNKNOWN"
	}
}

// FixedWidth returns the on-disk byte width of a column of this type.
// length is only consulted for Char.
func (t ColType) FixedWidth(length int) int {
	switch t {
	case Int32:
		return 4
	case Int64, Double, Date:
		return 8
	case Char:
		return length
	default:
		panic("types: FixedWidth called on non-storable type " + t.String())
	}
}

// Null sentinel bit patterns. A teaching engine can afford to reserve one
// value per type as "this slot holds SQL NULL" rather than carry a
// separate null bitmap.
const (
	Int32NullSentinel = math.MinInt32
	Int64NullSentinel = math.MinInt64
	DateNullSentinel  = math.MinInt64
)

// doubleNullBits is a specific quiet-NaN bit pattern reserved for NULL,
// distinct from the NaN produced by invalid arithmetic (e.g. 0.0/0.0),
// which uses the default quiet-NaN payload.
const doubleNullBits uint64 = 0x7FF8000000000001

// DoubleNullSentinel is the float64 value used to represent NULL doubles.
var DoubleNullSentinel = math.Float64frombits(doubleNullBits)

// IsDoubleNull reports whether v is the reserved NULL bit pattern.
func IsDoubleNull(v float64) bool {
	return math.Float64bits(v) == doubleNullBits
}

// charNullByte fills a CHAR(n) slot to mark it NULL. 0xFF is not a valid
// leading byte of any UTF-8 sequence BeeDB writes through normal paths, so
// it is safe to reserve as a sentinel in this teaching engine.
const charNullByte byte = 0xFF

// FillCharNull writes the NULL sentinel pattern into a CHAR(n) buffer.
func FillCharNull(buf []byte) {
	for i := range buf {
		buf[i] = charNullByte
	}
}

// IsCharNull reports whether buf holds the NULL sentinel pattern.
func IsCharNull(buf []byte) bool {
	for _, b := range buf {
		if b != charNullByte {
			return false
		}
	}
	return len(buf) > 0
}
