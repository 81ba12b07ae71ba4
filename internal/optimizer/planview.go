// Package optimizer implements the Logical Optimizer: an iterative
// rule-driven rewriter operating over a mutable PlanView of a logical
// plan tree.
//
// What/How: tinySQL's plan rewriting lives inline in
// internal/engine/optimizations.go's HashJoinOptimizer (runtime
// interface-typed join-condition extraction, ColumnIndex for fast
// lookups); this package generalizes that one-off hash-join rewrite into
// a full multi-rule driver, and represents the mutable view as
// index-keyed arrays rather than tinySQL's pointer-based Expr/Row
// structures.
package optimizer

import "github.com/beedb-project/beedb/internal/plan"

// id is an arena index into a PlanView. Ids are dense from 0 (the root
// of the original tree is allocated first, at 0); use invalidID for "no
// node" in parent/child slots.
type id int

const invalidID id = -1

// children holds up to two child ids; right is invalidID for unary nodes.
type children struct {
	left, right id
}

// PlanView is the arena the optimizer rules mutate: every node reachable
// from the original tree is copied in once, then rules add, remove, and
// relink entries by id without touching the original owned tree.
type PlanView struct {
	nodes    []*plan.Node
	parent   []id
	kids     []children
	freed    map[id]bool
	rootID   id
}

// NewPlanView flattens root into an arena, recording parent/child links.
func NewPlanView(root *plan.Node) *PlanView {
	v := &PlanView{freed: make(map[id]bool)}
	v.rootID = v.insert(root, invalidID)
	return v
}

func (v *PlanView) insert(n *plan.Node, parent id) id {
	if n == nil {
		return invalidID
	}
	self := id(len(v.nodes))
	v.nodes = append(v.nodes, n)
	v.parent = append(v.parent, parent)
	v.kids = append(v.kids, children{left: invalidID, right: invalidID})

	left := v.insert(n.Left, self)
	right := v.insert(n.Right, self)
	v.kids[self] = children{left: left, right: right}
	return self
}

// Root returns the arena id of the plan's root.
func (v *PlanView) Root() id { return v.rootID }

// Node returns the logical node stored at id.
func (v *PlanView) Node(i id) *plan.Node { return v.nodes[i] }

// Parent returns i's parent, or invalidID if i is the root.
func (v *PlanView) Parent(i id) id { return v.parent[i] }

// Left returns i's left (or only) child, or invalidID.
func (v *PlanView) Left(i id) id { return v.kids[i].left }

// Right returns i's right child, or invalidID.
func (v *PlanView) Right(i id) id { return v.kids[i].right }

// IsFreed reports whether i was removed from the view by a rule
// (e.g. MergeSelection folding a node away).
func (v *PlanView) IsFreed(i id) bool { return v.freed[i] }

// Replace swaps the subtree rooted at old with replacement, relinking
// old's parent to point at replacement and inserting replacement (and its
// already-constructed subtree) fresh into the arena. Returns the new id.
func (v *PlanView) Replace(old id, replacement *plan.Node) id {
	p := v.parent[old]
	newID := v.insert(replacement, p)
	v.relinkChild(p, old, newID)
	v.freed[old] = true
	if old == v.rootID {
		v.rootID = newID
	}
	return newID
}

// Remove deletes i, splicing i's single child (if any) into i's place. If
// i has no child, the parent's slot pointing at i becomes invalidID.
func (v *PlanView) Remove(i id) {
	p := v.parent[i]
	child := v.kids[i].left
	if child == invalidID {
		child = v.kids[i].right
	}
	if child != invalidID {
		v.parent[child] = p
	}
	v.relinkChild(p, i, child)
	v.freed[i] = true
	if i == v.rootID {
		v.rootID = child
	}
}

func (v *PlanView) relinkChild(parent, oldChild, newChild id) {
	if parent == invalidID {
		return
	}
	if v.kids[parent].left == oldChild {
		v.kids[parent] = children{left: newChild, right: v.kids[parent].right}
	} else if v.kids[parent].right == oldChild {
		v.kids[parent] = children{left: v.kids[parent].left, right: newChild}
	}
}

// InsertBetween splices newNode between parent and child, i.e. makes
// newNode a new unary node whose child is the subtree currently at
// child, and relinks parent to point at newNode. Used by
// PredicatePushDown to move a Selection down.
func (v *PlanView) InsertBetween(parent, child id, newNode *plan.Node) id {
	newID := id(len(v.nodes))
	v.nodes = append(v.nodes, newNode)
	v.parent = append(v.parent, parent)
	v.kids = append(v.kids, children{left: child, right: invalidID})

	v.relinkChild(parent, child, newID)
	v.parent[child] = newID
	return newID
}

// Rebuild reconstitutes an owned *plan.Node tree mirroring the current
// view, recursively, starting at root. Schemas are taken as already
// current on each node (rules that change a node's output also update
// its Schema field directly); Rebuild itself does not recompute any
// node's Schema from its children.
func (v *PlanView) Rebuild() *plan.Node {
	return v.rebuild(v.rootID)
}

func (v *PlanView) rebuild(i id) *plan.Node {
	if i == invalidID {
		return nil
	}
	n := v.nodes[i]
	cp := *n
	cp.Left = v.rebuild(v.kids[i].left)
	cp.Right = v.rebuild(v.kids[i].right)
	return &cp
}

// Walk visits every live node id in the view in preorder.
func (v *PlanView) Walk(fn func(id)) {
	v.walk(v.rootID, fn)
}

func (v *PlanView) walk(i id, fn func(id)) {
	if i == invalidID || v.freed[i] {
		return
	}
	fn(i)
	v.walk(v.kids[i].left, fn)
	v.walk(v.kids[i].right, fn)
}
