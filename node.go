package aabbtree

import "fmt"

// noSlot marks the absence of a slot reference: the parent of the root, or
// the next link of the last free slot.
const noSlot = -1

type nodeKind uint8

const (
	freeNode nodeKind = iota
	innerNode
	leafNode
)

// treeNode is one arena slot, a tagged union of the three node kinds.
// Which fields are meaningful depends on kind:
//
//	freeNode:  next
//	innerNode: bounds, parent, left, right, height
//	leafNode:  bounds, parent, data
//
// Every site that reads a field keyed by kind switches exhaustively and
// panics on an unexpected kind; reaching a free slot through the tree is a
// bug in the tree, never a caller error.
type treeNode[U comparable] struct {
	kind   nodeKind
	bounds BoundingBox
	parent int
	left   int
	right  int
	height int
	next   int
	data   U
}

func newFreeNode[U comparable](next int) treeNode[U] {
	return treeNode[U]{kind: freeNode, next: next, parent: noSlot, left: noSlot, right: noSlot}
}

func newInnerNode[U comparable](bounds BoundingBox, parent, left, right, height int) treeNode[U] {
	return treeNode[U]{kind: innerNode, bounds: bounds, parent: parent, left: left, right: right, height: height, next: noSlot}
}

func newLeafNode[U comparable](bounds BoundingBox, parent int, data U) treeNode[U] {
	return treeNode[U]{kind: leafNode, bounds: bounds, parent: parent, left: noSlot, right: noSlot, height: 1, next: noSlot, data: data}
}

func (n treeNode[U]) String() string {
	switch n.kind {
	case freeNode:
		if n.next == noSlot {
			return "FreeNode{next: none}"
		}
		return fmt.Sprintf("FreeNode{next: %d}", n.next)
	case innerNode:
		return fmt.Sprintf("InnerNode{bounds: %v, height: %d}", n.bounds, n.height)
	case leafNode:
		return fmt.Sprintf("LeafNode{bounds: %v, data: %v}", n.bounds, n.data)
	default:
		return fmt.Sprintf("treeNode{kind: %d}", n.kind)
	}
}
