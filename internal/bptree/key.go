package bptree

import "encoding/binary"

// KeySize is the fixed width, in bytes, of every key this index
// stores. spec.md scopes the index to fixed-width comparable keys;
// variable-length keys are an explicit Non-goal.
const KeySize = 8

// Key is a fixed-width, opaque key slot. Keys are compared only
// through a Comparator supplied at tree construction — the tree
// itself never interprets the bytes.
type Key [KeySize]byte

// Comparator orders two keys: negative if a < b, zero if equal,
// positive if a > b.
type Comparator func(a, b Key) int

// Int64Key packs a signed 64-bit integer into a Key using big-endian
// byte order, so the natural byte-wise Comparator (bytes.Compare-like)
// agrees with integer order for non-negative values. This, along with
// Int64Comparator, is a convenience for callers whose record keys are
// plain integers (as in every spec.md test scenario); it is not part
// of the index's core contract.
func Int64Key(v int64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], uint64(v))
	return k
}

// Int64 unpacks a Key built by Int64Key back into an int64.
func (k Key) Int64() int64 {
	return int64(binary.BigEndian.Uint64(k[:]))
}

// Int64Comparator orders keys built by Int64Key in ascending integer
// order.
func Int64Comparator(a, b Key) int {
	av, bv := a.Int64(), b.Int64()
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// RID (record id) is the opaque record identifier stored as a leaf
// value. spec.md treats the record-identifier type as an external
// collaborator; RID is the minimal concrete shape (heap page id +
// slot number) needed to exercise and test the index end to end.
type RID struct {
	PageID int64
	Slot   uint32
}

// ridSize is RID's fixed on-page width: an 8-byte page id plus a
// 4-byte slot number.
const ridSize = 12

func encodeRID(r RID, dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint32(dst[8:12], r.Slot)
}

func decodeRID(src []byte) RID {
	return RID{
		PageID: int64(binary.LittleEndian.Uint64(src[0:8])),
		Slot:   binary.LittleEndian.Uint32(src[8:12]),
	}
}
