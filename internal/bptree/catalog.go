// Catalog is the index's hook into whatever names its trees: page 0
// of the index file holds a small list of (name, root page id)
// records, so that reopening an index file can find an existing
// tree's root without the caller having to remember its page id.
package bptree

import (
	"encoding/binary"
	"fmt"
	"sync"

	"bptreeindex/internal/bufferpool"
)

// catalogPageID is the fixed, reserved page holding the name/root_id
// directory. Both diskmanager.Manager and diskmanager.Memory start
// real page allocation at 1, leaving this free.
const catalogPageID int64 = 0

// Catalog persists the mapping from tree name to root page id. Its
// on-page format is a simple length-prefixed record list:
//
//	uint16 count
//	count * { uint16 nameLen, nameLen bytes, int64 rootID }
type Catalog struct {
	mu      sync.Mutex
	pool    *bufferpool.Pool
	order   []string
	roots   map[string]int64
}

// OpenCatalog loads the catalog page, creating an empty directory if
// the page has never been written.
func OpenCatalog(pool *bufferpool.Pool) (*Catalog, error) {
	c := &Catalog{pool: pool, roots: make(map[string]int64)}
	frame, err := pool.FetchPage(catalogPageID)
	if err != nil {
		return nil, fmt.Errorf("bptree: open catalog: %w", err)
	}
	defer pool.UnpinPage(catalogPageID, false)

	frame.RLock()
	defer frame.RUnlock()
	c.decodeLocked(frame.Data)
	return c, nil
}

func (c *Catalog) decodeLocked(data []byte) {
	count := binary.LittleEndian.Uint16(data[0:2])
	off := 2
	for i := uint16(0); i < count; i++ {
		if off+2 > len(data) {
			return
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+nameLen+8 > len(data) {
			return
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		rootID := int64(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
		c.order = append(c.order, name)
		c.roots[name] = rootID
	}
}

func (c *Catalog) encodeLocked(data []byte) error {
	for i := range data {
		data[i] = 0
	}
	binary.LittleEndian.PutUint16(data[0:2], uint16(len(c.order)))
	off := 2
	for _, name := range c.order {
		nameLen := len(name)
		if off+2+nameLen+8 > len(data) {
			return fmt.Errorf("bptree: catalog page overflow with %d entries", len(c.order))
		}
		binary.LittleEndian.PutUint16(data[off:off+2], uint16(nameLen))
		off += 2
		copy(data[off:off+nameLen], name)
		off += nameLen
		binary.LittleEndian.PutUint64(data[off:off+8], uint64(c.roots[name]))
		off += 8
	}
	return nil
}

// RootID returns the root page id registered for name, if any.
func (c *Catalog) RootID(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.roots[name]
	return id, ok
}

// SetRootID inserts or updates name's root page id and persists the
// directory to the catalog page immediately.
func (c *Catalog) SetRootID(name string, rootID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.roots[name]; !ok {
		c.order = append(c.order, name)
	}
	c.roots[name] = rootID

	frame, err := c.pool.FetchPage(catalogPageID)
	if err != nil {
		return fmt.Errorf("bptree: fetch catalog page: %w", err)
	}
	frame.Lock()
	err = c.encodeLocked(frame.Data)
	frame.Unlock()
	c.pool.UnpinPage(catalogPageID, err == nil)
	if err != nil {
		return err
	}
	return nil
}
