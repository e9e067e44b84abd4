package bptree

import (
	"fmt"
	"sync"
	"testing"

	"bptreeindex/internal/bufferpool"
	"bptreeindex/internal/diskmanager"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree {
	t.Helper()
	pool, err := bufferpool.New(64, diskmanager.NewMemory())
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	tree, err := NewTree("t", pool, Int64Comparator, leafMax, internalMax)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tree
}

func mustInsert(t *testing.T, tree *Tree, k int64) {
	t.Helper()
	ok, err := tree.Insert(Int64Key(k), RID{PageID: k, Slot: 1})
	if err != nil {
		t.Fatalf("insert %d: %v", k, err)
	}
	if !ok {
		t.Fatalf("insert %d: reported duplicate unexpectedly", k)
	}
}

func mustGet(t *testing.T, tree *Tree, k int64) RID {
	t.Helper()
	rid, ok, err := tree.Get(Int64Key(k))
	if err != nil {
		t.Fatalf("get %d: %v", k, err)
	}
	if !ok {
		t.Fatalf("get %d: not found", k)
	}
	return rid
}

func TestTreeEmpty(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	if !tree.IsEmpty() {
		t.Fatal("fresh tree should be empty")
	}
	if _, ok, _ := tree.Get(Int64Key(1)); ok {
		t.Fatal("get on empty tree should miss")
	}
	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if it.Valid() {
		t.Fatal("iterator over empty tree should be invalid")
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keys := []int64{10, 20, 5, 40, 30, 15, 25, 35, 1, 50, 7, 33}
	for _, k := range keys {
		mustInsert(t, tree, k)
	}
	if tree.IsEmpty() {
		t.Fatal("tree should not be empty after inserts")
	}
	for _, k := range keys {
		rid := mustGet(t, tree, k)
		if rid.PageID != k {
			t.Fatalf("get %d: got RID %+v", k, rid)
		}
	}
	if _, ok, _ := tree.Get(Int64Key(999)); ok {
		t.Fatal("get on absent key should miss")
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	mustInsert(t, tree, 1)
	ok, err := tree.Insert(Int64Key(1), RID{PageID: 2})
	if err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}
	if ok {
		t.Fatal("inserting an existing key should report false")
	}
	rid := mustGet(t, tree, 1)
	if rid.PageID != 1 {
		t.Fatalf("duplicate insert overwrote value: %+v", rid)
	}
}

func TestIteratorOrdering(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keys := []int64{50, 10, 30, 20, 40, 5, 45, 25, 35, 15}
	for _, k := range keys {
		mustInsert(t, tree, k)
	}

	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	var got []int64
	for it.Valid() {
		got = append(got, it.Key().Int64())
		if err := it.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	want := append([]int64(nil), keys...)
	sortInts(want)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("iterator order = %v, want %v", got, want)
	}
}

func TestBeginAt(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30, 40, 50} {
		mustInsert(t, tree, k)
	}

	it, err := tree.BeginAt(Int64Key(25))
	if err != nil {
		t.Fatalf("beginat: %v", err)
	}
	if !it.Valid() || it.Key().Int64() != 30 {
		t.Fatalf("beginat(25) should land on 30, got valid=%v", it.Valid())
	}
}

func TestRemoveCausesCoalesce(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keys := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	for _, k := range keys {
		mustInsert(t, tree, k)
	}

	// Delete most keys, forcing repeated underflow, redistribution and
	// coalescing up through internal levels.
	for _, k := range keys[:len(keys)-2] {
		ok, err := tree.Remove(Int64Key(k))
		if err != nil {
			t.Fatalf("remove %d: %v", k, err)
		}
		if !ok {
			t.Fatalf("remove %d: reported missing", k)
		}
	}

	for _, k := range keys[:len(keys)-2] {
		if _, ok, _ := tree.Get(Int64Key(k)); ok {
			t.Fatalf("key %d should have been removed", k)
		}
	}
	for _, k := range keys[len(keys)-2:] {
		mustGet(t, tree, k)
	}
}

func TestRemoveEmptiesTree(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	mustInsert(t, tree, 1)
	mustInsert(t, tree, 2)

	if ok, err := tree.Remove(Int64Key(1)); err != nil || !ok {
		t.Fatalf("remove 1: ok=%v err=%v", ok, err)
	}
	if ok, err := tree.Remove(Int64Key(2)); err != nil || !ok {
		t.Fatalf("remove 2: ok=%v err=%v", ok, err)
	}
	if !tree.IsEmpty() {
		t.Fatal("tree should be empty after removing every key")
	}

	mustInsert(t, tree, 3)
	mustGet(t, tree, 3)
}

func TestRemoveMissingKey(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	mustInsert(t, tree, 1)
	ok, err := tree.Remove(Int64Key(2))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok {
		t.Fatal("removing an absent key should report false")
	}
}

func TestConcurrentDisjointInserts(t *testing.T) {
	tree := newTestTree(t, 4, 4)

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < perGoroutine; i++ {
				k := base*perGoroutine + i
				if _, err := tree.Insert(Int64Key(k), RID{PageID: k}); err != nil {
					t.Errorf("insert %d: %v", k, err)
				}
			}
		}(int64(g))
	}
	wg.Wait()

	for g := 0; g < goroutines; g++ {
		for i := int64(0); i < perGoroutine; i++ {
			k := int64(g)*perGoroutine + i
			if _, ok, _ := tree.Get(Int64Key(k)); !ok {
				t.Fatalf("missing key %d after concurrent insert", k)
			}
		}
	}
}

func sortInts(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
