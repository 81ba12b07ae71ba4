package plan

import "github.com/beedb-project/beedb/internal/types"

// NodeKind tags one logical (and, post-optimization, physical-shaped)
// plan node variant.
type NodeKind int

const (
	NodeScan NodeKind = iota
	NodeIndexScan
	NodeSelection
	NodeProjection
	NodeArithmetic
	NodeLimit
	NodeOrder
	NodeCrossProduct
	NodeNestedLoopsJoin
	NodeHashJoin
	NodeAggregation
	NodeInsert
	NodeUpdate
	NodeDelete
	NodeCreateTable
	NodeCreateIndex
	NodeBeginTxn
	NodeCommitTxn
	NodeAbortTxn
)

func (k NodeKind) String() string {
	names := [...]string{
		"Scan", "IndexScan", "Selection", "Projection", "Arithmetic",
		"Limit", "Order", "CrossProduct", "NestedLoopsJoin", "HashJoin",
		"Aggregation", "Insert", "Update", "Delete", "CreateTable",
		"CreateIndex", "BeginTxn", "CommitTxn", "AbortTxn",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// OrderKey is one ORDER BY key: a physical column index plus direction.
type OrderKey struct {
	ColumnIndex int
	Ascending   bool
}

// AggFunc enumerates the aggregate functions Aggregation
// operator supports.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// AggSpec is one output column of an Aggregation node.
type AggSpec struct {
	Func        AggFunc
	ColumnIndex int // ignored for AggCount
	ResultTerm  string
}

// ArithSpec is one output column of an Arithmetic node: either a plain
// copy from a child column index, or an expression to evaluate.
type ArithSpec struct {
	CopyFromChild bool
	ChildIndex    int
	Expr          *Expr
	ResultTerm    string
	ResultType    types.ColType
}

// AssignSpec is one `column = expr` of an UPDATE statement.
type AssignSpec struct {
	ColumnIndex int
	NewValue    *Expr
}

// IndexKeyRange is one key-range fragment IndexScanSubstitution extracts
// from a Selection predicate. Column identifies which attribute the
// fragment constrains; every IndexKeyRange attached to the same
// NodeIndexScan must share the same Column, since one IndexScan probes
// exactly one index.
type IndexKeyRange struct {
	Column string
	Op     CmpOp
	Lit    any
}

// Node is one logical plan node: a nullary (Scan/IndexScan/literal-row
// Insert), unary (Selection/Projection/Arithmetic/Limit/Order/
// Aggregation/Update/Delete), or binary (CrossProduct/NestedLoopsJoin/
// HashJoin) variant, carrying the fields relevant to its Kind.
type Node struct {
	Kind   NodeKind
	Schema *types.Schema
	Left   *Node
	Right  *Node

	// NodeScan / NodeIndexScan / NodeInsert / NodeUpdate / NodeDelete /
	// NodeCreateTable / NodeCreateIndex
	TableName string

	// NodeIndexScan
	IndexName string
	KeyRanges []IndexKeyRange

	// NodeSelection
	Predicate *Expr

	// NodeProjection
	ProjectTerms []*Expr

	// NodeArithmetic
	ArithSpecs []ArithSpec

	// NodeLimit
	Limit  int
	Offset int

	// NodeOrder
	OrderKeys []OrderKey

	// NodeCrossProduct / NodeNestedLoopsJoin
	JoinPredicate *Expr

	// NodeHashJoin
	LeftKeyIndex  int
	RightKeyIndex int

	// NodeAggregation
	Aggregates []AggSpec

	// NodeInsert: literal rows to insert when there is no child producing
	// them (VALUES clause); Left is nil in that case.
	InsertRows [][]any

	// NodeUpdate
	Assignments []AssignSpec

	// NodeCreateTable
	NewColumns []types.Column

	// NodeCreateIndex
	NewIndexName string
	IndexColumn  string
	IndexUnique  bool
	IndexKind    string // "hash", "btree", ...
}

// Children returns this node's non-nil children, left first.
func (n *Node) Children() []*Node {
	var out []*Node
	if n.Left != nil {
		out = append(out, n.Left)
	}
	if n.Right != nil {
		out = append(out, n.Right)
	}
	return out
}

// IsUnary reports whether n has exactly one child.
func (n *Node) IsUnary() bool { return n.Left != nil && n.Right == nil }

// IsBinary reports whether n has two children.
func (n *Node) IsBinary() bool { return n.Left != nil && n.Right != nil }

// IsNullary reports whether n is a leaf.
func (n *Node) IsNullary() bool { return n.Left == nil && n.Right == nil }
