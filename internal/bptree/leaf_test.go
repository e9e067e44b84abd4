package bptree

import (
	"testing"

	"bptreeindex/internal/page"
)

func newTestLeaf(pageID int64, maxSize int) *LeafPage {
	return InitLeafPage(page.NewFrame(pageID), pageID, noParent, maxSize)
}

func TestLeafInsertKeepsSortedOrder(t *testing.T) {
	leaf := newTestLeaf(1, 10)
	for _, k := range []int64{5, 1, 3, 4, 2} {
		if !leaf.Insert(Int64Key(k), RID{PageID: k}, Int64Comparator) {
			t.Fatalf("insert %d failed", k)
		}
	}
	if leaf.size() != 5 {
		t.Fatalf("size = %d, want 5", leaf.size())
	}
	for i := 0; i < 5; i++ {
		if got := leaf.KeyAt(i).Int64(); got != int64(i+1) {
			t.Fatalf("slot %d = %d, want %d", i, got, i+1)
		}
	}
}

func TestLeafInsertDuplicateRejected(t *testing.T) {
	leaf := newTestLeaf(1, 10)
	leaf.Insert(Int64Key(1), RID{PageID: 1}, Int64Comparator)
	if leaf.Insert(Int64Key(1), RID{PageID: 2}, Int64Comparator) {
		t.Fatal("duplicate insert should fail")
	}
	if leaf.size() != 1 {
		t.Fatalf("size = %d, want 1", leaf.size())
	}
}

func TestLeafLookupAndRemove(t *testing.T) {
	leaf := newTestLeaf(1, 10)
	for _, k := range []int64{1, 2, 3} {
		leaf.Insert(Int64Key(k), RID{PageID: k * 10}, Int64Comparator)
	}

	if v, ok := leaf.Lookup(Int64Key(2), Int64Comparator); !ok || v.PageID != 20 {
		t.Fatalf("lookup 2 = %+v, %v", v, ok)
	}
	if _, ok := leaf.Lookup(Int64Key(99), Int64Comparator); ok {
		t.Fatal("lookup of absent key should miss")
	}

	if !leaf.Remove(Int64Key(2), Int64Comparator) {
		t.Fatal("remove 2 should succeed")
	}
	if leaf.size() != 2 {
		t.Fatalf("size after remove = %d, want 2", leaf.size())
	}
	if _, ok := leaf.Lookup(Int64Key(2), Int64Comparator); ok {
		t.Fatal("removed key should no longer be found")
	}
	if leaf.Remove(Int64Key(2), Int64Comparator) {
		t.Fatal("removing an already-removed key should fail")
	}
}

func TestLeafMoveHalfTo(t *testing.T) {
	left := newTestLeaf(1, 4)
	for _, k := range []int64{1, 2, 3, 4} {
		left.Insert(Int64Key(k), RID{PageID: k}, Int64Comparator)
	}
	right := newTestLeaf(2, 4)

	left.MoveHalfTo(right)

	if left.size() != 2 || right.size() != 2 {
		t.Fatalf("sizes after split: left=%d right=%d", left.size(), right.size())
	}
	if left.KeyAt(0).Int64() != 1 || left.KeyAt(1).Int64() != 2 {
		t.Fatalf("left half wrong: %d %d", left.KeyAt(0).Int64(), left.KeyAt(1).Int64())
	}
	if right.KeyAt(0).Int64() != 3 || right.KeyAt(1).Int64() != 4 {
		t.Fatalf("right half wrong: %d %d", right.KeyAt(0).Int64(), right.KeyAt(1).Int64())
	}
}

func TestLeafMoveAllToAndSiblingChain(t *testing.T) {
	left := newTestLeaf(1, 10)
	left.Insert(Int64Key(1), RID{PageID: 1}, Int64Comparator)
	right := newTestLeaf(2, 10)
	right.Insert(Int64Key(2), RID{PageID: 2}, Int64Comparator)
	right.setNextPageID(99)
	left.setNextPageID(right.pageID())

	right.MoveAllTo(left)

	if right.size() != 0 {
		t.Fatalf("source size after merge = %d, want 0", right.size())
	}
	if left.size() != 2 {
		t.Fatalf("recipient size after merge = %d, want 2", left.size())
	}
	if left.NextPageID() != 99 {
		t.Fatalf("recipient next id = %d, want 99", left.NextPageID())
	}
}

func TestLeafRedistribute(t *testing.T) {
	left := newTestLeaf(1, 10)
	for _, k := range []int64{1, 2, 3} {
		left.Insert(Int64Key(k), RID{PageID: k}, Int64Comparator)
	}
	right := newTestLeaf(2, 10)
	right.Insert(Int64Key(4), RID{PageID: 4}, Int64Comparator)

	left.MoveLastToFrontOf(right)
	if left.size() != 2 || right.size() != 2 {
		t.Fatalf("sizes after redistribute: left=%d right=%d", left.size(), right.size())
	}
	if right.KeyAt(0).Int64() != 3 {
		t.Fatalf("right's new first key = %d, want 3", right.KeyAt(0).Int64())
	}

	right.MoveFirstToEndOf(left)
	if left.KeyAt(left.size()-1).Int64() != 3 {
		t.Fatalf("left's new last key = %d, want 3", left.KeyAt(left.size()-1).Int64())
	}
}
