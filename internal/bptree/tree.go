// Package bptree is a disk-resident B+tree index: fixed-width keys,
// RID values, latch-crabbed concurrent descent, backed by a buffer
// pool it treats as an external collaborator for all page I/O.
package bptree

import (
	"fmt"
	"sync"

	"bptreeindex/internal/bufferpool"
	"bptreeindex/internal/page"
)

// Tree is a single named B+tree index over a shared buffer pool. Its
// root page id lives behind its own latch (rootGuard) separate from
// the per-page latches taken while crabbing down to a leaf, since the
// root can change (on the first insert, or when a split/collapse
// reaches the top) independently of any one page's content.
type Tree struct {
	name            string
	pool            *bufferpool.Pool
	cmp             Comparator
	leafMaxSize     int
	internalMaxSize int
	catalog         *Catalog

	rootGuard sync.RWMutex
	rootID    int64
}

// NewTree opens (or creates) the named tree over pool. leafMaxSize
// and internalMaxSize bound how many slots a leaf or internal page
// may hold before it must split.
func NewTree(name string, pool *bufferpool.Pool, cmp Comparator, leafMaxSize, internalMaxSize int) (*Tree, error) {
	if leafMaxSize < 3 {
		return nil, fmt.Errorf("bptree: leaf max size must be >= 3, got %d", leafMaxSize)
	}
	if internalMaxSize < 3 {
		return nil, fmt.Errorf("bptree: internal max size must be >= 3, got %d", internalMaxSize)
	}

	catalog, err := OpenCatalog(pool)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		name:            name,
		pool:            pool,
		cmp:             cmp,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		catalog:         catalog,
		rootID:          noParent,
	}
	if id, ok := catalog.RootID(name); ok {
		t.rootID = id
	}
	return t, nil
}

// IsEmpty reports whether the tree currently holds no entries.
func (t *Tree) IsEmpty() bool {
	t.rootGuard.RLock()
	defer t.rootGuard.RUnlock()
	return t.rootID == noParent
}

func (t *Tree) minLeafSize() int     { return t.leafMaxSize / 2 }
func (t *Tree) minInternalSize() int { return t.internalMaxSize / 2 }

func (t *Tree) persistRoot() error {
	return t.catalog.SetRootID(t.name, t.rootID)
}

func (t *Tree) setParent(childID, parentID int64) error {
	frame, err := t.pool.FetchPage(childID)
	if err != nil {
		return fmt.Errorf("bptree: reparent page %d: %w", childID, err)
	}
	frame.Lock()
	header{frame: frame}.setParentID(parentID)
	frame.Unlock()
	return t.pool.UnpinPage(childID, true)
}

// fetchLocked fetches and latches pageID for op, panicking if the
// fetch fails: a child id read out of a parent page must resolve, so
// a failure here means the tree's own structure is corrupt.
func (t *Tree) fetchLocked(pageID int64, op operation) *page.Frame {
	frame, err := t.pool.FetchPage(pageID)
	if err != nil {
		panic(fmt.Sprintf("bptree: page %d referenced by tree structure is unreachable: %v", pageID, err))
	}
	if op == opRead {
		frame.RLock()
	} else {
		frame.Lock()
	}
	return frame
}

func (t *Tree) unlockUnpin(frame *page.Frame, op operation, dirty bool) {
	if op == opRead {
		frame.RUnlock()
	} else {
		frame.Unlock()
	}
	t.pool.UnpinPage(frame.ID, dirty)
}

// descend walks from the already-pushed root frame in ls down to the
// leaf that must contain key, releasing ancestor latches as soon as a
// node is proven safe for op.
func (t *Tree) descend(ls *latchSet, key Key, op operation) *LeafPage {
	for {
		cur := ls.frames[len(ls.frames)-1]
		h := header{frame: cur}
		if h.pageType() == leafPageType {
			leaf := AsLeafPage(cur)
			if safe(leaf.size(), leaf.maxSize(), t.minLeafSize(), op) {
				ls.releaseAncestors()
			}
			return leaf
		}

		internal := AsInternalPage(cur)
		if safe(internal.size(), internal.maxSize(), t.minInternalSize(), op) {
			ls.releaseAncestors()
		}
		childID := internal.Lookup(key, t.cmp)
		ls.push(t.fetchLocked(childID, op))
	}
}

// Get looks up key, returning its value if present.
func (t *Tree) Get(key Key) (RID, bool, error) {
	t.rootGuard.RLock()
	ls := newLatchSet(t.pool, opRead, t.rootGuard.RUnlock)
	defer ls.releaseRootGuard()

	if t.rootID == noParent {
		return RID{}, false, nil
	}

	ls.push(t.fetchLocked(t.rootID, opRead))
	leaf := t.descend(ls, key, opRead)
	value, ok := leaf.Lookup(key, t.cmp)
	ls.releaseAll(false)
	return value, ok, nil
}

// Insert adds (key, value), reporting false without effect if key is
// already present.
func (t *Tree) Insert(key Key, value RID) (bool, error) {
	t.rootGuard.Lock()
	ls := newLatchSet(t.pool, opInsert, t.rootGuard.Unlock)
	defer ls.releaseRootGuard()

	if t.rootID == noParent {
		frame, err := t.pool.NewPage()
		if err != nil {
			return false, fmt.Errorf("bptree: allocate root leaf: %w", err)
		}
		leaf := InitLeafPage(frame, frame.ID, noParent, t.leafMaxSize)
		leaf.Insert(key, value, t.cmp)
		t.pool.UnpinPage(frame.ID, true)
		t.rootID = frame.ID
		return true, t.persistRoot()
	}

	ls.push(t.fetchLocked(t.rootID, opInsert))
	leaf := t.descend(ls, key, opInsert)

	if !leaf.Insert(key, value, t.cmp) {
		ls.releaseAll(false)
		return false, nil
	}

	if leaf.size() < leaf.maxSize() {
		ls.releaseAll(true)
		return true, nil
	}

	sibFrame, err := t.pool.NewPage()
	if err != nil {
		return false, fmt.Errorf("bptree: allocate split sibling: %w", err)
	}
	sibling := InitLeafPage(sibFrame, sibFrame.ID, leaf.parentID(), t.leafMaxSize)
	leaf.MoveHalfTo(sibling)
	sibling.setNextPageID(leaf.NextPageID())
	leaf.setNextPageID(sibling.pageID())
	splitKey := sibling.KeyAt(0)
	t.pool.UnpinPage(sibFrame.ID, true)

	return true, t.insertIntoParent(ls, leaf.pageID(), splitKey, sibling.pageID())
}

// insertIntoParent links newChild into the parent of oldChild under
// splitKey, recursing (and possibly creating a new root) if that
// parent itself overflows. ls's top frame is oldChild's; ls.frames
// holds oldChild's ancestors beneath it.
func (t *Tree) insertIntoParent(ls *latchSet, oldChild int64, splitKey Key, newChild int64) error {
	cur := ls.frames[len(ls.frames)-1]
	ls.frames = ls.frames[:len(ls.frames)-1]
	t.unlockUnpin(cur, opInsert, true)

	if len(ls.frames) == 0 {
		rootFrame, err := t.pool.NewPage()
		if err != nil {
			return fmt.Errorf("bptree: allocate new root: %w", err)
		}
		root := InitInternalPage(rootFrame, rootFrame.ID, noParent, t.internalMaxSize)
		root.PopulateNewRoot(oldChild, splitKey, newChild)
		t.pool.UnpinPage(rootFrame.ID, true)

		if err := t.setParent(oldChild, rootFrame.ID); err != nil {
			return err
		}
		if err := t.setParent(newChild, rootFrame.ID); err != nil {
			return err
		}
		t.rootID = rootFrame.ID
		return t.persistRoot()
	}

	parentFrame := ls.frames[len(ls.frames)-1]
	parent := AsInternalPage(parentFrame)
	parent.InsertAfter(oldChild, splitKey, newChild)

	if parent.size() < parent.maxSize() {
		ls.releaseAll(true)
		return nil
	}

	sibFrame, err := t.pool.NewPage()
	if err != nil {
		return fmt.Errorf("bptree: allocate internal split sibling: %w", err)
	}
	sibling := InitInternalPage(sibFrame, sibFrame.ID, parent.parentID(), t.internalMaxSize)
	parent.MoveHalfTo(sibling)
	upKey := sibling.KeyAt(0)
	for i := 0; i < sibling.size(); i++ {
		if err := t.setParent(sibling.ValueAt(i), sibling.pageID()); err != nil {
			return err
		}
	}
	t.pool.UnpinPage(sibFrame.ID, true)

	return t.insertIntoParent(ls, parent.pageID(), upKey, sibling.pageID())
}

// Remove deletes key, reporting false if it was not present.
func (t *Tree) Remove(key Key) (bool, error) {
	t.rootGuard.Lock()
	ls := newLatchSet(t.pool, opDelete, t.rootGuard.Unlock)
	defer ls.releaseRootGuard()

	if t.rootID == noParent {
		return false, nil
	}

	ls.push(t.fetchLocked(t.rootID, opDelete))
	leaf := t.descend(ls, key, opDelete)

	if !leaf.Remove(key, t.cmp) {
		ls.releaseAll(false)
		return false, nil
	}

	return true, t.coalesceOrRedistributeLeaf(ls, leaf)
}

func (t *Tree) coalesceOrRedistributeLeaf(ls *latchSet, leaf *LeafPage) error {
	if leaf.isRoot() {
		if leaf.size() == 0 {
			cur := ls.frames[len(ls.frames)-1]
			t.unlockUnpin(cur, opDelete, false)
			t.pool.DeletePage(leaf.pageID())
			ls.frames = nil
			t.rootID = noParent
		} else {
			ls.releaseAll(true)
		}
		return t.persistRoot()
	}

	if leaf.size() >= t.minLeafSize() {
		ls.releaseAll(true)
		return nil
	}

	parent := AsInternalPage(ls.frames[len(ls.frames)-2])
	idx := parent.ValueIndex(leaf.pageID())

	if idx > 0 {
		prevFrame := t.fetchLocked(parent.ValueAt(idx-1), opDelete)
		prev := AsLeafPage(prevFrame)
		if prev.size()+leaf.size() >= leaf.maxSize() {
			prev.MoveLastToFrontOf(leaf)
			parent.SetKeyAt(idx, leaf.KeyAt(0))
			t.unlockUnpin(prevFrame, opDelete, true)
			ls.releaseAll(true)
			return nil
		}

		leaf.MoveAllTo(prev)
		t.unlockUnpin(prevFrame, opDelete, true)
		cur := ls.frames[len(ls.frames)-1]
		t.unlockUnpin(cur, opDelete, false)
		t.pool.DeletePage(leaf.pageID())
		ls.frames = ls.frames[:len(ls.frames)-1]
		parent.Remove(idx)
		return t.coalesceOrRedistributeInternal(ls, parent)
	}

	nextFrame := t.fetchLocked(parent.ValueAt(idx+1), opDelete)
	next := AsLeafPage(nextFrame)
	if next.size()+leaf.size() >= leaf.maxSize() {
		next.MoveFirstToEndOf(leaf)
		parent.SetKeyAt(idx+1, next.KeyAt(0))
		t.unlockUnpin(nextFrame, opDelete, true)
		ls.releaseAll(true)
		return nil
	}

	next.MoveAllTo(leaf)
	t.unlockUnpin(nextFrame, opDelete, false)
	t.pool.DeletePage(next.pageID())
	cur := ls.frames[len(ls.frames)-1]
	t.unlockUnpin(cur, opDelete, true)
	ls.frames = ls.frames[:len(ls.frames)-1]
	parent.Remove(idx + 1)
	return t.coalesceOrRedistributeInternal(ls, parent)
}

func (t *Tree) coalesceOrRedistributeInternal(ls *latchSet, node *InternalPage) error {
	if node.isRoot() {
		if node.size() == 1 {
			onlyChild := node.RemoveAndReturnOnlyChild()
			cur := ls.frames[len(ls.frames)-1]
			t.unlockUnpin(cur, opDelete, false)
			t.pool.DeletePage(node.pageID())
			ls.frames = nil
			if err := t.setParent(onlyChild, noParent); err != nil {
				return err
			}
			t.rootID = onlyChild
		} else {
			ls.releaseAll(true)
		}
		return t.persistRoot()
	}

	if node.size() >= t.minInternalSize() {
		ls.releaseAll(true)
		return nil
	}

	parent := AsInternalPage(ls.frames[len(ls.frames)-2])
	idx := parent.ValueIndex(node.pageID())

	if idx > 0 {
		prevFrame := t.fetchLocked(parent.ValueAt(idx-1), opDelete)
		prev := AsInternalPage(prevFrame)
		if prev.size()+node.size() >= node.maxSize() {
			oldLastKey := prev.KeyAt(prev.size() - 1)
			moved := prev.ValueAt(prev.size() - 1)
			prev.MoveLastToFrontOf(node, parent.KeyAt(idx))
			parent.SetKeyAt(idx, oldLastKey)
			t.unlockUnpin(prevFrame, opDelete, true)
			if err := t.setParent(moved, node.pageID()); err != nil {
				return err
			}
			ls.releaseAll(true)
			return nil
		}

		node.MoveAllTo(prev, parent.KeyAt(idx))
		for i := 0; i < prev.size(); i++ {
			if err := t.setParent(prev.ValueAt(i), prev.pageID()); err != nil {
				return err
			}
		}
		t.unlockUnpin(prevFrame, opDelete, true)
		cur := ls.frames[len(ls.frames)-1]
		t.unlockUnpin(cur, opDelete, false)
		t.pool.DeletePage(node.pageID())
		ls.frames = ls.frames[:len(ls.frames)-1]
		parent.Remove(idx)
		return t.coalesceOrRedistributeInternal(ls, parent)
	}

	nextFrame := t.fetchLocked(parent.ValueAt(idx+1), opDelete)
	next := AsInternalPage(nextFrame)
	if next.size()+node.size() >= node.maxSize() {
		newSeparator := next.KeyAt(1)
		moved := next.ValueAt(0)
		next.MoveFirstToEndOf(node, parent.KeyAt(idx+1))
		parent.SetKeyAt(idx+1, newSeparator)
		t.unlockUnpin(nextFrame, opDelete, true)
		if err := t.setParent(moved, node.pageID()); err != nil {
			return err
		}
		ls.releaseAll(true)
		return nil
	}

	next.MoveAllTo(node, parent.KeyAt(idx+1))
	for i := 0; i < node.size(); i++ {
		if err := t.setParent(node.ValueAt(i), node.pageID()); err != nil {
			return err
		}
	}
	t.unlockUnpin(nextFrame, opDelete, false)
	t.pool.DeletePage(next.pageID())
	cur := ls.frames[len(ls.frames)-1]
	t.unlockUnpin(cur, opDelete, true)
	ls.frames = ls.frames[:len(ls.frames)-1]
	parent.Remove(idx + 1)
	return t.coalesceOrRedistributeInternal(ls, parent)
}
