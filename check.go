package aabbtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CheckInvariant verifies the internal consistency of the tree: slot
// reachability, the free list, the lookup index bijection, parent links,
// and the cached bounds and heights of every inner node. A non-nil result
// indicates a bug in the tree, not a caller error; it is meant for tests
// and debugging, not for production call paths.
func (t *Tree[U]) CheckInvariant() error {
	if err := t.checkNodes(); err != nil {
		log.Errorln("AABB tree invariant violated:", err)
		return err
	}
	if err := t.checkLeafForData(); err != nil {
		log.Errorln("AABB tree invariant violated:", err)
		return err
	}
	return nil
}

// checkNodes verifies that exactly the slots unreachable from the root are
// free, that the free list is exactly the set of free slots, and that every
// reachable node has consistent parent links and cached aggregates.
func (t *Tree[U]) checkNodes() error {
	reachable := make([]bool, len(t.nodes))
	if !t.Empty() {
		if t.nodes[0].kind == freeNode {
			return errors.New("root slot is free in a non-empty tree")
		}
		if t.nodes[0].parent != noSlot {
			return errors.New("root has a parent").WithTag("parent", t.nodes[0].parent)
		}
		if err := t.checkSubtree(0, reachable); err != nil {
			return err
		}
	}

	for slot := range t.nodes {
		if reachable[slot] == (t.nodes[slot].kind == freeNode) {
			return errors.New("slot reachability does not match node kind").
				WithTag("slot", slot).
				WithTag("reachable", reachable[slot])
		}
	}

	// walk the free list; it must visit every free slot exactly once
	remaining := 0
	for _, n := range t.nodes {
		if n.kind == freeNode {
			remaining++
		}
	}
	for cur := t.freeHead; cur != noSlot; cur = t.nodes[cur].next {
		if cur < 0 || cur >= len(t.nodes) {
			return errors.New("free list slot out of range").WithTag("slot", cur)
		}
		if t.nodes[cur].kind != freeNode {
			return errors.New("free list links a live slot").WithTag("slot", cur)
		}
		if remaining == 0 {
			return errors.New("free list is longer than the number of free slots")
		}
		remaining--
	}
	if remaining != 0 {
		return errors.New("free slots missing from the free list").WithTag("count", remaining)
	}

	return nil
}

func (t *Tree[U]) checkSubtree(slot int, reachable []bool) error {
	if reachable[slot] {
		return errors.New("slot reachable through more than one path").WithTag("slot", slot)
	}
	reachable[slot] = true

	n := &t.nodes[slot]
	switch n.kind {
	case innerNode:
		for _, child := range []int{n.left, n.right} {
			if child < 0 || child >= len(t.nodes) {
				return errors.New("child slot out of range").
					WithTag("slot", slot).
					WithTag("child", child)
			}
			if t.nodes[child].kind == freeNode {
				return errors.New("free slot reachable from the root").WithTag("slot", child)
			}
			if t.parentSlot(child) != slot {
				return errors.New("child does not link back to its parent").
					WithTag("slot", slot).
					WithTag("child", child)
			}
			if err := t.checkSubtree(child, reachable); err != nil {
				return err
			}
		}

		wantBounds := t.nodeBounds(n.left).Expand(t.nodeBounds(n.right))
		if !n.bounds.Equals(wantBounds) {
			return errors.New("cached bounds do not match children").
				WithTag("slot", slot).
				WithTag("cached", n.bounds).
				WithTag("computed", wantBounds)
		}
		wantHeight := max(t.nodeHeight(n.left), t.nodeHeight(n.right)) + 1
		if n.height != wantHeight {
			return errors.New("cached height does not match children").
				WithTag("slot", slot).
				WithTag("cached", n.height).
				WithTag("computed", wantHeight)
		}
		return nil
	case leafNode:
		return nil
	default:
		return errors.New("free slot reachable from the root").WithTag("slot", slot)
	}
}

// checkLeafForData verifies that the lookup index is a bijection between
// stored payloads and leaf slots.
func (t *Tree[U]) checkLeafForData() error {
	for data, slot := range t.leafForData {
		if slot < 0 || slot >= len(t.nodes) {
			return errors.New("lookup index slot out of range").WithTag("slot", slot)
		}
		n := &t.nodes[slot]
		if n.kind != leafNode {
			return errors.New("lookup index points at a non-leaf slot").WithTag("slot", slot)
		}
		if n.data != data {
			return errors.New("lookup index points at a leaf holding other data").
				WithTag("slot", slot)
		}
	}

	for slot := range t.nodes {
		if t.nodes[slot].kind != leafNode {
			continue
		}
		if mapped, ok := t.leafForData[t.nodes[slot].data]; !ok || mapped != slot {
			return errors.New("leaf missing from the lookup index").WithTag("slot", slot)
		}
	}

	return nil
}
