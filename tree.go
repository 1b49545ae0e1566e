package aabbtree

import (
	"math"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Error types returned by Insert and Update. Match with errors.IsType.
const (
	ErrTypeInvalidBounds = "invalid_bounds"
	ErrTypeDuplicateKey  = "duplicate_key"
	ErrTypeNotFound      = "not_found"
)

// HitTest decides whether a traversal enters a bounding box.
type HitTest func(box BoundingBox) bool

// Tree is a dynamic bounding volume hierarchy over axis-aligned boxes. Each
// inserted box carries one payload of type U, unique across the tree, which
// identifies the box for removal and update.
//
// Nodes live in an indexed arena; slots freed by removals are recycled
// through a free list by later insertions. The root always occupies slot 0.
//
// A Tree is not synchronized. It assumes a single writer, and callers that
// query concurrently must hold a read lock excluding any mutating call.
type Tree[U comparable] struct {
	nodes       []treeNode[U]
	leafForData map[U]int
	freeHead    int

	// alternates subtree choice when insertion costs tie exactly
	choice uint
}

func NewTree[U comparable]() *Tree[U] {
	return &Tree[U]{
		leafForData: make(map[U]int),
		freeHead:    noSlot,
	}
}

// NewTreeWithCapacity creates an empty tree with room reserved for roughly
// numLeafs leaf nodes and the inner nodes above them.
func NewTreeWithCapacity[U comparable](numLeafs int) *Tree[U] {
	t := NewTree[U]()
	if numLeafs > 0 {
		numNodes := (int(math.Log2(float64(numLeafs))) + 1) * numLeafs
		t.nodes = make([]treeNode[U], 0, numNodes)
	}
	return t
}

// Empty indicates whether this tree contains no nodes.
func (t *Tree[U]) Empty() bool {
	return len(t.nodes) == 0
}

// Size returns the number of payloads stored in this tree.
func (t *Tree[U]) Size() int {
	return len(t.leafForData)
}

// Bounds returns the bounds of all nodes in this tree, or a box made up of
// NaN values if the tree is empty.
func (t *Tree[U]) Bounds() BoundingBox {
	if t.Empty() {
		return NaNBox()
	}
	return t.nodeBounds(0)
}

// Contains indicates whether a node with the given data exists in this tree.
func (t *Tree[U]) Contains(data U) bool {
	_, ok := t.leafForData[data]
	return ok
}

// Insert adds a node with the given bounds and data to this tree. It fails
// with ErrTypeInvalidBounds if the bounds contain NaN and with
// ErrTypeDuplicateKey if the data is already present; in both cases the
// tree is left unchanged.
func (t *Tree[U]) Insert(bounds BoundingBox, data U) error {
	if bounds.IsNaN() {
		return errors.New("bounds contain NaN").
			WithType(ErrTypeInvalidBounds).
			WithTag("bounds", bounds)
	}
	if t.Contains(data) {
		return errors.New("data already in tree").
			WithType(ErrTypeDuplicateKey).
			WithTag("data", data)
	}

	if t.Empty() {
		t.storeNode(newLeafNode(bounds, noSlot, data))
	} else {
		t.insertAt(0, bounds, data)
	}
	return nil
}

// Remove deletes the node holding the given data and reports whether such a
// node existed. Removing absent data is not an error.
func (t *Tree[U]) Remove(data U) bool {
	slot, ok := t.leafForData[data]
	if !ok {
		return false
	}

	if slot == 0 {
		// the target is the root leaf
		t.Clear()
		return true
	}

	parent := t.parentSlot(slot)
	grandParent := t.parentSlot(parent)
	sibling := t.siblingSlot(slot)

	// The sibling subtree takes the parent's place, removing one level.
	t.moveNode(sibling, parent)
	t.setParentSlot(parent, grandParent)

	t.freeNodeAt(slot)
	delete(t.leafForData, data)

	// Bounds and height propagate upward independently; either may settle
	// before the other.
	boundsChanged, heightChanged := true, true
	for cur := grandParent; cur != noSlot && (boundsChanged || heightChanged); cur = t.parentSlot(cur) {
		if boundsChanged {
			boundsChanged = t.updateBounds(cur)
		}
		if heightChanged {
			heightChanged = t.updateHeight(cur)
		}
	}

	return true
}

// Update replaces the bounds of the node holding the given data. It fails
// with ErrTypeInvalidBounds if the new bounds contain NaN and with
// ErrTypeNotFound if the data is absent. The node is removed and
// re-inserted, so it may end up in a different subtree.
func (t *Tree[U]) Update(newBounds BoundingBox, data U) error {
	if newBounds.IsNaN() {
		return errors.New("bounds contain NaN").
			WithType(ErrTypeInvalidBounds).
			WithTag("bounds", newBounds)
	}
	if !t.Remove(data) {
		return errors.New("node not found").
			WithType(ErrTypeNotFound).
			WithTag("data", data)
	}
	return t.Insert(newBounds, data)
}

// Clear discards all nodes and resets the free list.
func (t *Tree[U]) Clear() {
	t.nodes = t.nodes[:0]
	t.leafForData = make(map[U]int)
	t.freeHead = noSlot
}

// FindIntersectors returns the payload of every node whose bounds contain
// the ray's origin or intersect the ray, in no particular order.
func (t *Tree[U]) FindIntersectors(ray Ray) []U {
	var result []U
	t.EachIntersector(ray, func(data U) {
		result = append(result, data)
	})
	return result
}

// EachIntersector calls fn with the payload of every node whose bounds
// contain the ray's origin or intersect the ray.
func (t *Tree[U]) EachIntersector(ray Ray, fn func(U)) {
	t.Traverse(func(box BoundingBox) bool {
		return box.ContainsPoint(ray.Origin) || ray.Intersects(box)
	}, fn)
}

// FindContainers returns the payload of every node whose bounds contain the
// given point, in no particular order.
func (t *Tree[U]) FindContainers(point Vec3) []U {
	var result []U
	t.EachContainer(point, func(data U) {
		result = append(result, data)
	})
	return result
}

// EachContainer calls fn with the payload of every node whose bounds
// contain the given point.
func (t *Tree[U]) EachContainer(point Vec3, fn func(U)) {
	t.Traverse(func(box BoundingBox) bool {
		return box.ContainsPoint(point)
	}, fn)
}

// Traverse walks the tree depth first, descending into every inner node
// whose bounds pass the test, and calls fn with the payload of every leaf
// whose bounds pass it. The tree must not be mutated during the walk.
func (t *Tree[U]) Traverse(test HitTest, fn func(U)) {
	if !t.Empty() {
		t.traverseNode(0, test, fn)
	}
}

func (t *Tree[U]) traverseNode(slot int, test HitTest, fn func(U)) {
	n := &t.nodes[slot]
	switch n.kind {
	case innerNode:
		if test(n.bounds) {
			t.traverseNode(n.left, test, fn)
			t.traverseNode(n.right, test, fn)
		}
	case leafNode:
		if test(n.bounds) {
			fn(n.data)
		}
	default:
		panic("aabbtree: traversal reached a free slot")
	}
}

// Equals compares the logical shape of two trees: inner nodes match on
// bounds and height, leafs on bounds and data, children pairwise in
// position. Slot indices and free list layout are ignored.
func (t *Tree[U]) Equals(other *Tree[U]) bool {
	if t.Empty() && other.Empty() {
		return true
	}
	if t.Empty() != other.Empty() {
		return false
	}
	return compareSubtrees(t.nodes, other.nodes, 0, 0)
}

func compareSubtrees[U comparable](lhs, rhs []treeNode[U], lhsSlot, rhsSlot int) bool {
	if lhsSlot >= len(lhs) || rhsSlot >= len(rhs) {
		return false
	}

	lhsNode := &lhs[lhsSlot]
	rhsNode := &rhs[rhsSlot]
	if lhsNode.kind != rhsNode.kind {
		return false
	}

	switch lhsNode.kind {
	case freeNode:
		return true
	case innerNode:
		return lhsNode.bounds.Equals(rhsNode.bounds) &&
			lhsNode.height == rhsNode.height &&
			compareSubtrees(lhs, rhs, lhsNode.left, rhsNode.left) &&
			compareSubtrees(lhs, rhs, lhsNode.right, rhsNode.right)
	case leafNode:
		return lhsNode.bounds.Equals(rhsNode.bounds) && lhsNode.data == rhsNode.data
	default:
		panic("aabbtree: invalid node kind")
	}
}

func (t *Tree[U]) String() string {
	var b strings.Builder
	if !t.Empty() {
		t.appendSubtree(&b, 0, 0)
	}
	return b.String()
}

func (t *Tree[U]) appendSubtree(b *strings.Builder, slot, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	b.WriteString(t.nodes[slot].String())
	b.WriteByte('\n')

	if t.nodes[slot].kind == innerNode {
		t.appendSubtree(b, t.nodes[slot].left, depth+1)
		t.appendSubtree(b, t.nodes[slot].right, depth+1)
	}
}

// insertAt descends from slot to the best leaf, replaces that leaf with an
// inner node over the old and the new leaf, and refreshes cached bounds and
// heights on the way back up. The returned flags report whether the bounds
// or height of the subtree rooted at slot changed.
func (t *Tree[U]) insertAt(slot int, bounds BoundingBox, data U) (boundsChanged, heightChanged bool) {
	switch t.nodes[slot].kind {
	case innerNode:
		subtree := t.selectSubtree(t.nodes[slot].left, t.nodes[slot].right, bounds)
		boundsChanged, heightChanged = t.insertAt(subtree, bounds, data)
		if boundsChanged {
			boundsChanged = t.updateBounds(slot)
		}
		if heightChanged {
			heightChanged = t.updateHeight(slot)
		}
		return boundsChanged, heightChanged
	case leafNode:
		// copy before storeNode, which may grow the arena
		oldLeaf := t.nodes[slot]
		left := t.storeNode(newLeafNode(oldLeaf.bounds, slot, oldLeaf.data))
		right := t.storeNode(newLeafNode(bounds, slot, data))
		t.nodes[slot] = newInnerNode[U](oldLeaf.bounds.Expand(bounds), oldLeaf.parent, left, right, 2)
		return true, true
	default:
		panic("aabbtree: insertion reached a free slot")
	}
}

// selectSubtree picks the child to descend into when inserting bounds: a
// child already containing the bounds wins, then the smaller volume growth,
// then the smaller height, then the two children alternate.
func (t *Tree[U]) selectSubtree(slot1, slot2 int, bounds BoundingBox) int {
	bounds1 := t.nodeBounds(slot1)
	bounds2 := t.nodeBounds(slot2)
	contains1 := bounds1.Contains(bounds)
	contains2 := bounds2.Contains(bounds)

	if contains1 && !contains2 {
		return slot1
	}
	if !contains1 && contains2 {
		return slot2
	}

	if !contains1 && !contains2 {
		diff1 := bounds1.Expand(bounds).Volume() - bounds1.Volume()
		diff2 := bounds2.Expand(bounds).Volume() - bounds2.Volume()
		if diff1 < diff2 {
			return slot1
		}
		if diff2 < diff1 {
			return slot2
		}
	}

	// both children grow by the same volume
	height1 := t.nodeHeight(slot1)
	height2 := t.nodeHeight(slot2)
	if height1 < height2 {
		return slot1
	}
	if height2 < height1 {
		return slot2
	}

	choice := t.choice
	t.choice++
	if choice%2 == 0 {
		return slot1
	}
	return slot2
}

// storeNode places the node in a recycled slot if one is free, appending to
// the arena otherwise, and returns the slot. Leaf nodes are registered in
// the lookup index.
func (t *Tree[U]) storeNode(n treeNode[U]) int {
	var slot int
	if t.freeHead != noSlot {
		slot = t.freeHead
		t.freeHead = t.nodes[slot].next
		t.nodes[slot] = n
	} else {
		slot = len(t.nodes)
		t.nodes = append(t.nodes, n)
	}

	if n.kind == leafNode {
		t.leafForData[n.data] = slot
	}

	return slot
}

// moveNode relocates the node at from into to, repointing its children's
// parent links or its lookup index entry at the new slot, then frees from.
// Only the moved node changes identity; untouched slots stay valid.
func (t *Tree[U]) moveNode(from, to int) {
	n := t.nodes[from]
	t.nodes[to] = n

	switch n.kind {
	case innerNode:
		t.setParentSlot(n.left, to)
		t.setParentSlot(n.right, to)
	case leafNode:
		t.leafForData[n.data] = to
	default:
		panic("aabbtree: moving a free slot")
	}

	t.freeNodeAt(from)
}

// freeNodeAt pushes the slot onto the free list. The slot must not already
// be free.
func (t *Tree[U]) freeNodeAt(slot int) {
	if t.nodes[slot].kind == freeNode {
		panic("aabbtree: double free")
	}
	t.nodes[slot] = newFreeNode[U](t.freeHead)
	t.freeHead = slot
}

// updateBounds recomputes the cached bounds of the inner node at slot from
// its children and reports whether they changed.
func (t *Tree[U]) updateBounds(slot int) bool {
	merged := t.nodeBounds(t.leftChildSlot(slot)).Expand(t.nodeBounds(t.rightChildSlot(slot)))
	changed := !merged.Equals(t.nodes[slot].bounds)
	t.nodes[slot].bounds = merged
	return changed
}

// updateHeight recomputes the cached height of the inner node at slot from
// its children and reports whether it changed.
func (t *Tree[U]) updateHeight(slot int) bool {
	height := max(t.nodeHeight(t.leftChildSlot(slot)), t.nodeHeight(t.rightChildSlot(slot))) + 1
	changed := height != t.nodes[slot].height
	t.nodes[slot].height = height
	return changed
}

func (t *Tree[U]) parentSlot(slot int) int {
	n := &t.nodes[slot]
	switch n.kind {
	case innerNode, leafNode:
		return n.parent
	default:
		panic("aabbtree: free slot has no parent")
	}
}

func (t *Tree[U]) setParentSlot(slot, parent int) {
	n := &t.nodes[slot]
	switch n.kind {
	case innerNode, leafNode:
		n.parent = parent
	default:
		panic("aabbtree: free slot has no parent")
	}
}

func (t *Tree[U]) leftChildSlot(slot int) int {
	n := &t.nodes[slot]
	if n.kind != innerNode {
		panic("aabbtree: node has no children")
	}
	return n.left
}

func (t *Tree[U]) rightChildSlot(slot int) int {
	n := &t.nodes[slot]
	if n.kind != innerNode {
		panic("aabbtree: node has no children")
	}
	return n.right
}

func (t *Tree[U]) siblingSlot(slot int) int {
	parent := &t.nodes[t.parentSlot(slot)]
	if parent.kind != innerNode {
		panic("aabbtree: parent is not an inner node")
	}
	if slot == parent.left {
		return parent.right
	}
	return parent.left
}

func (t *Tree[U]) nodeHeight(slot int) int {
	n := &t.nodes[slot]
	switch n.kind {
	case innerNode:
		return n.height
	case leafNode:
		return 1
	default:
		panic("aabbtree: free slot has no height")
	}
}

func (t *Tree[U]) nodeBounds(slot int) BoundingBox {
	n := &t.nodes[slot]
	switch n.kind {
	case innerNode, leafNode:
		return n.bounds
	default:
		panic("aabbtree: free slot has no bounds")
	}
}
