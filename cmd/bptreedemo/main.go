// Command bptreedemo builds a small on-disk B+tree index, inserts a
// handful of integer keys, looks a few up, then walks the whole index
// in order. It exists to exercise internal/bptree end to end; it is
// not the SQL engine this index could eventually sit underneath.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"bptreeindex/internal/bptree"
	"bptreeindex/internal/bufferpool"
	"bptreeindex/internal/diskmanager"
)

func main() {
	path := flag.String("file", "", "index file path (default: a temp file)")
	poolSize := flag.Int("pool-size", 32, "buffer pool frame capacity")
	flag.Parse()

	if *path == "" {
		f, err := os.CreateTemp("", "bptreedemo-*.idx")
		if err != nil {
			log.Fatalf("create temp index file: %v", err)
		}
		f.Close()
		*path = f.Name()
		defer os.Remove(*path)
		fmt.Printf("using temp index file %s\n", *path)
	}

	disk, err := diskmanager.Open(*path)
	if err != nil {
		log.Fatalf("open disk manager: %v", err)
	}

	pool, err := bufferpool.New(*poolSize, disk)
	if err != nil {
		log.Fatalf("create buffer pool: %v", err)
	}
	defer pool.Close()

	tree, err := bptree.NewTree("demo", pool, bptree.Int64Comparator, 4, 4)
	if err != nil {
		log.Fatalf("open tree: %v", err)
	}

	values := []int64{10, 20, 5, 40, 30, 15, 25, 35, 1, 50}
	for _, v := range values {
		if _, err := tree.Insert(bptree.Int64Key(v), bptree.RID{PageID: v, Slot: 0}); err != nil {
			log.Fatalf("insert %d: %v", v, err)
		}
	}
	fmt.Println("inserted:", values)

	for _, v := range []int64{25, 999} {
		rid, ok, err := tree.Get(bptree.Int64Key(v))
		if err != nil {
			log.Fatalf("get %d: %v", v, err)
		}
		if ok {
			fmt.Printf("get(%d) = %+v\n", v, rid)
		} else {
			fmt.Printf("get(%d) = not found\n", v)
		}
	}

	fmt.Println("in-order scan:")
	it, err := tree.Begin()
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	for it.Valid() {
		fmt.Printf("  %d -> %+v\n", it.Key().Int64(), it.Value())
		if err := it.Next(); err != nil {
			log.Fatalf("next: %v", err)
		}
	}

	fmt.Println(pool.Stats())
}
