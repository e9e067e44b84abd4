package bptree

import "bptreeindex/internal/page"

// Iterator walks leaf entries in ascending key order across the
// sibling chain, holding a read latch on only the one leaf page it is
// currently positioned over.
type Iterator struct {
	tree  *Tree
	frame *page.Frame
	leaf  *LeafPage
	idx   int
}

// Begin returns an iterator positioned at the smallest key in the
// tree. Calling Begin on an empty tree yields an iterator that is
// immediately !Valid().
func (t *Tree) Begin() (*Iterator, error) {
	t.rootGuard.RLock()
	ls := newLatchSet(t.pool, opRead, t.rootGuard.RUnlock)
	defer ls.releaseRootGuard()

	if t.rootID == noParent {
		return &Iterator{}, nil
	}

	frame := t.fetchLocked(t.rootID, opRead)
	// A pure left-spine descent never triggers a structural change, so
	// the root guard is safe to release as soon as the root frame
	// itself is pinned.
	ls.releaseRootGuard()
	for {
		h := header{frame: frame}
		if h.pageType() == leafPageType {
			return &Iterator{tree: t, frame: frame, leaf: AsLeafPage(frame), idx: 0}, nil
		}
		internal := AsInternalPage(frame)
		childID := internal.ValueAt(0)
		child := t.fetchLocked(childID, opRead)
		t.unlockUnpin(frame, opRead, false)
		frame = child
	}
}

// BeginAt returns an iterator positioned at the first key >= key.
func (t *Tree) BeginAt(key Key) (*Iterator, error) {
	t.rootGuard.RLock()
	ls := newLatchSet(t.pool, opRead, t.rootGuard.RUnlock)
	defer ls.releaseRootGuard()

	if t.rootID == noParent {
		return &Iterator{}, nil
	}

	ls.push(t.fetchLocked(t.rootID, opRead))
	leaf := t.descend(ls, key, opRead)
	frame := ls.frames[len(ls.frames)-1]
	ls.frames = nil
	it := &Iterator{tree: t, frame: frame, leaf: leaf, idx: leaf.KeyIndex(key, t.cmp)}
	if it.idx >= leaf.size() {
		// Every key in this leaf is below key: the first key >= key, if
		// any, starts the next leaf in the sibling chain.
		it.idx = leaf.size() - 1
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.leaf != nil && it.idx < it.leaf.size()
}

// Key returns the entry the iterator is positioned at.
func (it *Iterator) Key() Key {
	return it.leaf.KeyAt(it.idx)
}

// Value returns the entry the iterator is positioned at.
func (it *Iterator) Value() RID {
	return it.leaf.ValueAt(it.idx)
}

// Next advances the iterator, crossing into the next leaf via the
// sibling pointer when the current one is exhausted.
func (it *Iterator) Next() error {
	if it.leaf == nil {
		return nil
	}
	it.idx++
	if it.idx < it.leaf.size() {
		return nil
	}

	nextID := it.leaf.NextPageID()
	it.tree.unlockUnpin(it.frame, opRead, false)
	if nextID == noParent {
		it.leaf = nil
		it.frame = nil
		return nil
	}

	frame := it.tree.fetchLocked(nextID, opRead)
	it.frame = frame
	it.leaf = AsLeafPage(frame)
	it.idx = 0
	return nil
}

// Close releases the iterator's held latch, if any. Callers that
// drain an iterator to the end (Valid() becomes false) need not call
// Close; it is only needed when abandoning an iterator early.
func (it *Iterator) Close() {
	if it.leaf == nil {
		return
	}
	it.tree.unlockUnpin(it.frame, opRead, false)
	it.leaf = nil
	it.frame = nil
}
