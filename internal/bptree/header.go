package bptree

import (
	"encoding/binary"

	"bptreeindex/internal/page"
)

// PageType distinguishes a leaf page from an internal page; it is the
// first byte of every page this index owns.
type PageType uint8

const (
	invalidPageType PageType = iota
	leafPageType
	internalPageType
)

// Common page header, present at offset 0 of every leaf and internal
// page:
//
//	offset  size  field
//	0       1     page type
//	1       1     (reserved)
//	2       2     size       (number of populated slots)
//	4       2     max size   (slot capacity before a split is needed)
//	8       8     parent page id (-1 for the root)
//	16      8     this page's id
//	24      8     lsn (log sequence number of the last write)
const (
	offPageType  = 0
	offSize      = 2
	offMaxSize   = 4
	offParentID  = 8
	offPageID    = 16
	offLSN       = 24
	commonHeaderSize = 32
)

// noParent marks a page with no parent, i.e. the current root.
const noParent int64 = -1

// header wraps the common fields every page type carries. Leaf and
// internal pages embed it and add their own fields after it.
type header struct {
	frame *page.Frame
}

func (h header) pageType() PageType {
	return PageType(h.frame.Data[offPageType])
}

func (h header) setPageType(t PageType) {
	h.frame.Data[offPageType] = byte(t)
}

func (h header) size() int {
	return int(binary.LittleEndian.Uint16(h.frame.Data[offSize:]))
}

func (h header) setSize(n int) {
	binary.LittleEndian.PutUint16(h.frame.Data[offSize:], uint16(n))
}

func (h header) maxSize() int {
	return int(binary.LittleEndian.Uint16(h.frame.Data[offMaxSize:]))
}

func (h header) setMaxSize(n int) {
	binary.LittleEndian.PutUint16(h.frame.Data[offMaxSize:], uint16(n))
}

func (h header) parentID() int64 {
	return int64(binary.LittleEndian.Uint64(h.frame.Data[offParentID:]))
}

func (h header) setParentID(id int64) {
	binary.LittleEndian.PutUint64(h.frame.Data[offParentID:], uint64(id))
}

func (h header) pageID() int64 {
	return int64(binary.LittleEndian.Uint64(h.frame.Data[offPageID:]))
}

func (h header) setPageID(id int64) {
	binary.LittleEndian.PutUint64(h.frame.Data[offPageID:], uint64(id))
}

func (h header) lsn() int64 {
	return int64(binary.LittleEndian.Uint64(h.frame.Data[offLSN:]))
}

func (h header) setLSN(n int64) {
	binary.LittleEndian.PutUint64(h.frame.Data[offLSN:], uint64(n))
}

// isRoot reports whether this page currently has no parent.
func (h header) isRoot() bool {
	return h.parentID() == noParent
}
