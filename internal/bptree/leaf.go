package bptree

import (
	"encoding/binary"

	"bptreeindex/internal/page"
)

// Leaf-specific header field, directly after the common header:
//
//	offset  size  field
//	32      8     next leaf page id (noParent-valued -1 when none)
const (
	offNextID     = commonHeaderSize
	leafHeaderSize = offNextID + 8
)

// leafSlotSize is one (key, value) slot's on-page width.
const leafSlotSize = KeySize + ridSize

// LeafPage is a page holding sorted (key, RID) pairs and a pointer to
// its right sibling, for fast in-order range scans.
type LeafPage struct {
	header
}

// AsLeafPage wraps an already-initialized leaf frame.
func AsLeafPage(f *page.Frame) *LeafPage {
	return &LeafPage{header{frame: f}}
}

// InitLeafPage formats a freshly allocated frame as an empty leaf.
func InitLeafPage(f *page.Frame, pageID, parentID int64, maxSize int) *LeafPage {
	l := &LeafPage{header{frame: f}}
	l.setPageType(leafPageType)
	l.setSize(0)
	l.setMaxSize(maxSize)
	l.setParentID(parentID)
	l.setPageID(pageID)
	l.setLSN(0)
	l.setNextPageID(noParent)
	return l
}

func (l *LeafPage) NextPageID() int64 {
	return int64(binary.LittleEndian.Uint64(l.frame.Data[offNextID:]))
}

func (l *LeafPage) setNextPageID(id int64) {
	binary.LittleEndian.PutUint64(l.frame.Data[offNextID:], uint64(id))
}

func (l *LeafPage) slotOffset(i int) int {
	return leafHeaderSize + i*leafSlotSize
}

// KeyAt returns the key stored at slot i.
func (l *LeafPage) KeyAt(i int) Key {
	var k Key
	off := l.slotOffset(i)
	copy(k[:], l.frame.Data[off:off+KeySize])
	return k
}

func (l *LeafPage) setKeyAt(i int, k Key) {
	off := l.slotOffset(i)
	copy(l.frame.Data[off:off+KeySize], k[:])
}

// ValueAt returns the RID stored at slot i.
func (l *LeafPage) ValueAt(i int) RID {
	off := l.slotOffset(i) + KeySize
	return decodeRID(l.frame.Data[off : off+ridSize])
}

func (l *LeafPage) setValueAt(i int, v RID) {
	off := l.slotOffset(i) + KeySize
	encodeRID(v, l.frame.Data[off:off+ridSize])
}

func (l *LeafPage) setSlot(i int, k Key, v RID) {
	l.setKeyAt(i, k)
	l.setValueAt(i, v)
}

// KeyIndex returns the index of the first slot whose key is >= key
// (the classic lower_bound), using cmp for comparisons.
func (l *LeafPage) KeyIndex(key Key, cmp Comparator) int {
	n := l.size()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(l.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the value for key, if present.
func (l *LeafPage) Lookup(key Key, cmp Comparator) (RID, bool) {
	i := l.KeyIndex(key, cmp)
	if i < l.size() && cmp(l.KeyAt(i), key) == 0 {
		return l.ValueAt(i), true
	}
	return RID{}, false
}

// Insert adds (key, value) in sorted position. Returns false without
// modifying the page if key is already present (spec.md scopes the
// index to unique keys; duplicates are a Non-goal). Caller must
// ensure size() < maxSize() before calling — splitting is the tree's
// responsibility, not the page's.
func (l *LeafPage) Insert(key Key, value RID, cmp Comparator) bool {
	i := l.KeyIndex(key, cmp)
	n := l.size()
	if i < n && cmp(l.KeyAt(i), key) == 0 {
		return false
	}
	for j := n; j > i; j-- {
		l.setSlot(j, l.KeyAt(j-1), l.ValueAt(j-1))
	}
	l.setSlot(i, key, value)
	l.setSize(n + 1)
	return true
}

// Remove deletes key's slot, if present, shifting later slots left.
// Reports whether the key was found.
func (l *LeafPage) Remove(key Key, cmp Comparator) bool {
	i := l.KeyIndex(key, cmp)
	n := l.size()
	if i >= n || cmp(l.KeyAt(i), key) != 0 {
		return false
	}
	for j := i; j < n-1; j++ {
		l.setSlot(j, l.KeyAt(j+1), l.ValueAt(j+1))
	}
	l.setSize(n - 1)
	return true
}

// MoveHalfTo moves this (overfull) leaf's upper half of slots to
// recipient, which must be empty, as part of a leaf split. recipient
// becomes this leaf's new right sibling in the caller's linked list.
func (l *LeafPage) MoveHalfTo(recipient *LeafPage) {
	n := l.size()
	mid := n / 2
	for i := mid; i < n; i++ {
		recipient.setSlot(i-mid, l.KeyAt(i), l.ValueAt(i))
	}
	recipient.setSize(n - mid)
	l.setSize(mid)
}

// MoveAllTo appends all of this leaf's slots onto recipient and
// splices recipient into this leaf's place in the sibling chain, as
// part of coalescing two underfull leaves.
func (l *LeafPage) MoveAllTo(recipient *LeafPage) {
	rn := recipient.size()
	n := l.size()
	for i := 0; i < n; i++ {
		recipient.setSlot(rn+i, l.KeyAt(i), l.ValueAt(i))
	}
	recipient.setSize(rn + n)
	recipient.setNextPageID(l.NextPageID())
	l.setSize(0)
}

// MoveFirstToEndOf moves this leaf's first slot to the end of
// recipient, used to redistribute one slot from a right sibling into
// an underfull left sibling.
func (l *LeafPage) MoveFirstToEndOf(recipient *LeafPage) {
	k, v := l.KeyAt(0), l.ValueAt(0)
	recipient.setSlot(recipient.size(), k, v)
	recipient.setSize(recipient.size() + 1)

	n := l.size()
	for i := 0; i < n-1; i++ {
		l.setSlot(i, l.KeyAt(i+1), l.ValueAt(i+1))
	}
	l.setSize(n - 1)
}

// MoveLastToFrontOf moves this leaf's last slot to the front of
// recipient, used to redistribute one slot from a left sibling into
// an underfull right sibling.
func (l *LeafPage) MoveLastToFrontOf(recipient *LeafPage) {
	n := l.size()
	k, v := l.KeyAt(n-1), l.ValueAt(n-1)
	l.setSize(n - 1)

	rn := recipient.size()
	for i := rn; i > 0; i-- {
		recipient.setSlot(i, recipient.KeyAt(i-1), recipient.ValueAt(i-1))
	}
	recipient.setSlot(0, k, v)
	recipient.setSize(rn + 1)
}
