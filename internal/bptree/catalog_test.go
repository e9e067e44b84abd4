package bptree

import (
	"testing"

	"bptreeindex/internal/bufferpool"
	"bptreeindex/internal/diskmanager"
)

func TestCatalogSetAndReopen(t *testing.T) {
	disk := diskmanager.NewMemory()
	pool, err := bufferpool.New(16, disk)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	cat, err := OpenCatalog(pool)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	if _, ok := cat.RootID("orders"); ok {
		t.Fatal("fresh catalog should have no entries")
	}

	if err := cat.SetRootID("orders", 5); err != nil {
		t.Fatalf("set root: %v", err)
	}
	if err := cat.SetRootID("customers", 9); err != nil {
		t.Fatalf("set root: %v", err)
	}
	if err := cat.SetRootID("orders", 7); err != nil {
		t.Fatalf("update root: %v", err)
	}

	if id, ok := cat.RootID("orders"); !ok || id != 7 {
		t.Fatalf("orders root = %d, %v, want 7, true", id, ok)
	}
	if id, ok := cat.RootID("customers"); !ok || id != 9 {
		t.Fatalf("customers root = %d, %v, want 9, true", id, ok)
	}

	reopened, err := OpenCatalog(pool)
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	if id, ok := reopened.RootID("orders"); !ok || id != 7 {
		t.Fatalf("reopened orders root = %d, %v, want 7, true", id, ok)
	}
	if id, ok := reopened.RootID("customers"); !ok || id != 9 {
		t.Fatalf("reopened customers root = %d, %v, want 9, true", id, ok)
	}
}
