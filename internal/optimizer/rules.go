package optimizer

import (
	"github.com/beedb-project/beedb/internal/plan"
	"github.com/beedb-project/beedb/internal/types"
)

// Rule is one named rewrite pass. Apply mutates v in place and reports
// whether it changed anything; the driver re-applies a rule until it
// reports no more changes.
type Rule struct {
	Name  string
	Apply func(v *PlanView) bool
}

// IndexCapability is what an attribute's attached index can serve: its
// name, whether it is unique, and whether it supports range lookups —
// narrowed to what IndexScanSubstitution needs to decide applicability.
type IndexCapability struct {
	Name   string
	Unique bool
	Range  bool // supports <, <=, >, >= in addition to =
}

// IndexCatalog resolves which index, if any, serves a given table/column
// pair — supplied by the caller (the catalog/engine layer) so this
// package stays free of a dependency on it.
type IndexCatalog interface {
	IndexFor(table, column string) (IndexCapability, bool)
}

// Rules returns the rewrite rules in a fixed order.
func Rules(idx IndexCatalog) []Rule {
	return []Rule{
		{Name: "SwapOperands", Apply: applySwapOperands},
		{Name: "CrossProductToJoin", Apply: applyCrossProductToJoin},
		{Name: "IndexScanSubstitution", Apply: func(v *PlanView) bool { return applyIndexScanSubstitution(v, idx) }},
		{Name: "HashJoinSubstitution", Apply: applyHashJoinSubstitution},
		{Name: "PredicatePushDown", Apply: applyPredicatePushDown},
		{Name: "MergeSelection", Apply: applyMergeSelection},
		{Name: "RemoveProjection", Apply: applyRemoveProjection},
	}
}

// Optimize runs the full rule set to a fixed point and returns a rebuilt
// owned tree. Each rule is re-applied until it reports no further change
// before the driver moves to the next rule.
func Optimize(root *plan.Node, idx IndexCatalog) *plan.Node {
	v := NewPlanView(root)
	for _, rule := range Rules(idx) {
		for rule.Apply(v) {
		}
	}
	return v.Rebuild()
}

// --------------------------------------------------------- SwapOperands

func applySwapOperands(v *PlanView) bool {
	changed := false
	v.Walk(func(i id) {
		n := v.Node(i)
		if swapPredicate(&n.Predicate) {
			changed = true
		}
		if swapPredicate(&n.JoinPredicate) {
			changed = true
		}
	})
	return changed
}

// swapPredicate recursively canonicalizes e so attribute refs sit on the
// left of a comparison and literals on the right, flipping the operator
// to compensate. Reports whether it changed e.
func swapPredicate(e **plan.Expr) bool {
	if e == nil || *e == nil {
		return false
	}
	n := *e
	changed := false
	switch n.Kind {
	case plan.ExprCmp:
		changed = swapPredicate(&n.Left) || changed
		changed = swapPredicate(&n.Right) || changed
		if n.Left != nil && n.Left.Kind == plan.ExprLit && n.Right != nil && n.Right.Kind == plan.ExprAttr {
			n.Left, n.Right = n.Right, n.Left
			n.CmpOp = n.CmpOp.Flip()
			changed = true
		}
	case plan.ExprLogic:
		changed = swapPredicate(&n.Left) || changed
		changed = swapPredicate(&n.Right) || changed
	case plan.ExprNot:
		changed = swapPredicate(&n.Operand) || changed
	}
	return changed
}

// ----------------------------------------------------- CrossProductToJoin

func applyCrossProductToJoin(v *PlanView) bool {
	changed := false
	v.Walk(func(i id) {
		if v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeCrossProduct {
			return
		}
		sel, selID := findParentSelectionOverCrossJoin(v, i)
		if sel == nil {
			return
		}
		left, right, op, ok := sel.Predicate.IsAttrEqAttr()
		if !ok {
			return
		}
		if !(n.Left.Schema.Find(left.Table, left.Name) >= 0 && n.Right.Schema.Find(right.Table, right.Name) >= 0) {
			if n.Left.Schema.Find(right.Table, right.Name) >= 0 && n.Right.Schema.Find(left.Table, left.Name) >= 0 {
				left, right = right, left
			} else {
				return
			}
		}
		join := &plan.Node{
			Kind:          plan.NodeNestedLoopsJoin,
			Schema:        n.Schema,
			Left:          n.Left,
			Right:         n.Right,
			JoinPredicate: plan.Cmp(op, plan.Attr(left.Table, left.Name), plan.Attr(right.Table, right.Name)),
		}
		v.Replace(i, join)
		v.Remove(selID)
		changed = true
	})
	return changed
}

// findParentSelectionOverCrossJoin looks for a Selection anywhere in the
// view whose predicate is a pure attribute=attribute (or other
// comparison) test spanning crossID's two child schemas.
func findParentSelectionOverCrossJoin(v *PlanView, crossID id) (*plan.Node, id) {
	var found *plan.Node
	var foundID id
	cross := v.Node(crossID)
	v.Walk(func(i id) {
		if found != nil || v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeSelection {
			return
		}
		left, right, _, ok := n.Predicate.IsAttrEqAttr()
		if !ok {
			return
		}
		spansLR := cross.Left.Schema.Find(left.Table, left.Name) >= 0 && cross.Right.Schema.Find(right.Table, right.Name) >= 0
		spansRL := cross.Left.Schema.Find(right.Table, right.Name) >= 0 && cross.Right.Schema.Find(left.Table, left.Name) >= 0
		if spansLR || spansRL {
			found = n
			foundID = i
		}
	})
	return found, foundID
}

// ------------------------------------------------- IndexScanSubstitution

// indexableFragment is one conjunct that constrains a single attribute by
// a literal and has an index willing to serve it.
type indexableFragment struct {
	expr *plan.Expr
	op   plan.CmpOp
	lit  any
	capa IndexCapability
}

// applyIndexScanSubstitution groups a Selection's conjuncts by the
// attribute each one constrains, since one IndexScan probes exactly one
// index and can only ever combine fragments that share a column — mixing
// fragments from two different indexed columns into one IndexScan would
// compare each literal against the wrong column's sort order. Only the
// first column (in predicate order) with usable fragments is substituted;
// conjuncts on every other column, indexed or not, stay behind as a
// residual Selection.
func applyIndexScanSubstitution(v *PlanView, idx IndexCatalog) bool {
	if idx == nil {
		return false
	}
	changed := false
	v.Walk(func(i id) {
		if v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeSelection || v.Left(i) == invalidID || v.Node(v.Left(i)).Kind != plan.NodeScan {
			return
		}
		scan := v.Node(v.Left(i))
		conjuncts := plan.SplitConjuncts(n.Predicate)

		byColumn := make(map[string][]indexableFragment)
		var columnOrder []string
		var residual []*plan.Expr

		for _, c := range conjuncts {
			attr, op, lit, ok := c.IsAttrOpLiteral()
			if !ok || attr.Table != "" && attr.Table != scan.TableName {
				residual = append(residual, c)
				continue
			}
			capa, ok := idx.IndexFor(scan.TableName, attr.Name)
			if !ok || (op != plan.CmpEq && !capa.Range) {
				residual = append(residual, c)
				continue
			}
			if _, seen := byColumn[attr.Name]; !seen {
				columnOrder = append(columnOrder, attr.Name)
			}
			byColumn[attr.Name] = append(byColumn[attr.Name], indexableFragment{expr: c, op: op, lit: lit, capa: capa})
		}
		if len(columnOrder) == 0 {
			return
		}

		column := columnOrder[0]
		chosen := byColumn[column]
		for _, other := range columnOrder[1:] {
			for _, f := range byColumn[other] {
				residual = append(residual, f.expr)
			}
		}

		ranges := make([]plan.IndexKeyRange, len(chosen))
		for j, f := range chosen {
			ranges[j] = plan.IndexKeyRange{Column: column, Op: f.op, Lit: f.lit}
		}

		indexScan := &plan.Node{
			Kind:      plan.NodeIndexScan,
			Schema:    scan.Schema,
			TableName: scan.TableName,
			IndexName: chosen[0].capa.Name,
			KeyRanges: ranges,
		}
		v.Replace(v.Left(i), indexScan)

		if len(residual) == 0 {
			v.Remove(i)
		} else {
			n.Predicate = plan.JoinConjuncts(residual)
		}
		changed = true
	})
	return changed
}

// -------------------------------------------------- HashJoinSubstitution

func applyHashJoinSubstitution(v *PlanView) bool {
	changed := false
	v.Walk(func(i id) {
		if v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeNestedLoopsJoin {
			return
		}
		left, right, op, ok := n.JoinPredicate.IsAttrEqAttr()
		if !ok || op != plan.CmpEq {
			return
		}
		leftIdx := n.Left.Schema.Find(left.Table, left.Name)
		rightIdx := n.Right.Schema.Find(right.Table, right.Name)
		if leftIdx < 0 || rightIdx < 0 {
			leftIdx = n.Left.Schema.Find(right.Table, right.Name)
			rightIdx = n.Right.Schema.Find(left.Table, left.Name)
			if leftIdx < 0 || rightIdx < 0 {
				return
			}
		}
		hashJoin := &plan.Node{
			Kind:          plan.NodeHashJoin,
			Schema:        n.Schema,
			Left:          n.Left,
			Right:         n.Right,
			LeftKeyIndex:  leftIdx,
			RightKeyIndex: rightIdx,
		}
		v.Replace(i, hashJoin)
		changed = true
	})
	return changed
}

// ----------------------------------------------------- PredicatePushDown

func applyPredicatePushDown(v *PlanView) bool {
	changed := false
	v.Walk(func(i id) {
		if v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeSelection {
			return
		}
		childID := v.Left(i)
		refs := n.Predicate.AttrRefs()
		target := descendForPushDown(v, childID, refs)
		if target == childID {
			return
		}
		// Detach the selection from its current position, splicing its
		// child into its place, then reinsert it directly above target.
		v.Remove(i)
		sel := &plan.Node{Kind: plan.NodeSelection, Schema: v.Node(target).Schema, Predicate: n.Predicate}
		targetParent := v.Parent(target)
		v.InsertBetween(targetParent, target, sel)
		changed = true
	})
	return changed
}

// descendForPushDown implements rule 5's descent: starting
// at start, push as far down as attribute availability allows.
func descendForPushDown(v *PlanView, start id, refs []types.AttrRef) id {
	n := v.Node(start)
	if n.IsNullary() {
		return start
	}
	left := v.Left(start)
	if v.Node(left).Schema.ProvidesAll(refs) {
		return descendForPushDown(v, left, refs)
	}
	if n.IsBinary() {
		right := v.Right(start)
		if v.Node(right).Schema.ProvidesAll(refs) {
			return descendForPushDown(v, right, refs)
		}
	}
	return start
}

// -------------------------------------------------------- MergeSelection

func applyMergeSelection(v *PlanView) bool {
	changed := false
	v.Walk(func(i id) {
		if v.IsFreed(i) {
			return
		}
		n := v.Node(i)
		if n.Kind != plan.NodeSelection {
			return
		}
		childID := v.Left(i)
		child := v.Node(childID)
		if child.Kind != plan.NodeSelection {
			return
		}
		n.Predicate = plan.Logic(plan.LogicAnd, n.Predicate, child.Predicate)
		v.Remove(childID)
		changed = true
	})
	return changed
}

// ------------------------------------------------------- RemoveProjection

func applyRemoveProjection(v *PlanView) bool {
	root := v.Root()
	n := v.Node(root)
	if n.Kind != plan.NodeProjection {
		return false
	}
	child := v.Node(v.Left(root))
	if !n.Schema.Equal(child.Schema) {
		return false
	}
	v.Remove(root)
	return true
}
