package bptree

import (
	"encoding/binary"

	"bptreeindex/internal/page"
)

func encodeChildID(id int64, dst []byte) {
	binary.LittleEndian.PutUint64(dst, uint64(id))
}

func decodeChildID(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// internalSlotSize is one (key, child id) slot's on-page width.
// Slot 0's key is never meaningful — only its child pointer is — so
// internal pages hold one more child than they hold live keys.
const internalSlotSize = KeySize + 8

// InternalPage is a page holding separator keys and child page ids.
// For slot i > 0, KeyAt(i) is the smallest key reachable through
// ValueAt(i); ValueAt(0)'s subtree holds every key less than KeyAt(1).
type InternalPage struct {
	header
}

// AsInternalPage wraps an already-initialized internal frame.
func AsInternalPage(f *page.Frame) *InternalPage {
	return &InternalPage{header{frame: f}}
}

// InitInternalPage formats a freshly allocated frame as an empty
// internal page.
func InitInternalPage(f *page.Frame, pageID, parentID int64, maxSize int) *InternalPage {
	n := &InternalPage{header{frame: f}}
	n.setPageType(internalPageType)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParentID(parentID)
	n.setPageID(pageID)
	n.setLSN(0)
	return n
}

func (n *InternalPage) slotOffset(i int) int {
	return commonHeaderSize + i*internalSlotSize
}

// KeyAt returns the separator key at slot i. Slot 0's key is a
// placeholder and must not be used for comparisons.
func (n *InternalPage) KeyAt(i int) Key {
	var k Key
	off := n.slotOffset(i)
	copy(k[:], n.frame.Data[off:off+KeySize])
	return k
}

func (n *InternalPage) SetKeyAt(i int, k Key) {
	off := n.slotOffset(i)
	copy(n.frame.Data[off:off+KeySize], k[:])
}

// ValueAt returns the child page id at slot i.
func (n *InternalPage) ValueAt(i int) int64 {
	off := n.slotOffset(i) + KeySize
	return decodeChildID(n.frame.Data[off : off+8])
}

func (n *InternalPage) SetValueAt(i int, childID int64) {
	off := n.slotOffset(i) + KeySize
	encodeChildID(childID, n.frame.Data[off:off+8])
}

func (n *InternalPage) setSlot(i int, k Key, v int64) {
	n.SetKeyAt(i, k)
	n.SetValueAt(i, v)
}

// ValueIndex returns the slot index holding childID, or -1.
func (n *InternalPage) ValueIndex(childID int64) int {
	for i := 0; i < n.size(); i++ {
		if n.ValueAt(i) == childID {
			return i
		}
	}
	return -1
}

// Lookup returns the child page id whose subtree key must reach into
// in order to find key: the last slot whose key is <= key (slot 0
// always qualifies, since its key is a placeholder below everything).
func (n *InternalPage) Lookup(key Key, cmp Comparator) int64 {
	size := n.size()
	lo, hi := 1, size
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return n.ValueAt(lo - 1)
}

// PopulateNewRoot formats this (empty) page as a brand new root with
// exactly two children, used when a split propagates past the old
// root.
func (n *InternalPage) PopulateNewRoot(leftChild int64, splitKey Key, rightChild int64) {
	n.setSlot(0, Key{}, leftChild)
	n.setSlot(1, splitKey, rightChild)
	n.setSize(2)
}

// InsertAfter inserts (splitKey, newChild) immediately after the slot
// holding oldChild, used when a child splits and its new right half
// must be linked into the parent.
func (n *InternalPage) InsertAfter(oldChild int64, splitKey Key, newChild int64) {
	i := n.ValueIndex(oldChild)
	size := n.size()
	for j := size; j > i+1; j-- {
		n.setSlot(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.setSlot(i+1, splitKey, newChild)
	n.setSize(size + 1)
}

// Remove deletes the slot at index i.
func (n *InternalPage) Remove(i int) {
	size := n.size()
	for j := i; j < size-1; j++ {
		n.setSlot(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.setSize(size - 1)
}

// RemoveAndReturnOnlyChild empties a page left with exactly one
// child (the old root, after its last separator was coalesced away)
// and returns that child, which becomes the tree's new root.
func (n *InternalPage) RemoveAndReturnOnlyChild() int64 {
	child := n.ValueAt(0)
	n.setSize(0)
	return child
}

// MoveHalfTo moves this (overfull) internal page's upper half of
// slots to recipient, which must be empty, as part of an internal
// split. The caller is responsible for re-parenting the moved
// children and for promoting the first moved key to the parent.
func (n *InternalPage) MoveHalfTo(recipient *InternalPage) {
	size := n.size()
	mid := size / 2
	for i := mid; i < size; i++ {
		recipient.setSlot(i-mid, n.KeyAt(i), n.ValueAt(i))
	}
	recipient.setSize(size - mid)
	n.setSize(mid)
}

// MoveAllTo appends all of this page's slots onto recipient, using
// middleKey as the separator between recipient's existing last child
// and this page's first child. Used when coalescing two underfull
// internal pages.
func (n *InternalPage) MoveAllTo(recipient *InternalPage, middleKey Key) {
	rn := recipient.size()
	size := n.size()
	for i := 0; i < size; i++ {
		k := n.KeyAt(i)
		if i == 0 {
			k = middleKey
		}
		recipient.setSlot(rn+i, k, n.ValueAt(i))
	}
	recipient.setSize(rn + size)
	n.setSize(0)
}

// MoveFirstToEndOf moves this page's first (key, child) slot to the
// end of recipient, re-keying it with middleKey (the separator
// demoted from the parent), as part of redistributing from a right
// sibling into an underfull left sibling.
func (n *InternalPage) MoveFirstToEndOf(recipient *InternalPage, middleKey Key) {
	child := n.ValueAt(0)
	recipient.setSlot(recipient.size(), middleKey, child)
	recipient.setSize(recipient.size() + 1)

	size := n.size()
	for i := 0; i < size-1; i++ {
		n.setSlot(i, n.KeyAt(i+1), n.ValueAt(i+1))
	}
	n.setSize(size - 1)
}

// MoveLastToFrontOf moves this page's last (key, child) slot to the
// front of recipient, re-keying recipient's old first slot with
// middleKey, as part of redistributing from a left sibling into an
// underfull right sibling.
func (n *InternalPage) MoveLastToFrontOf(recipient *InternalPage, middleKey Key) {
	size := n.size()
	child := n.ValueAt(size - 1)
	n.setSize(size - 1)

	rn := recipient.size()
	for i := rn; i > 0; i-- {
		recipient.setSlot(i, recipient.KeyAt(i-1), recipient.ValueAt(i-1))
	}
	recipient.setSlot(1, middleKey, recipient.ValueAt(1))
	recipient.setSlot(0, Key{}, child)
	recipient.setSize(rn + 1)
}
