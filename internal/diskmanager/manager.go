// Package diskmanager is the file-backed half of the buffer pool's
// external-collaborator contract: allocate, read, write and
// deallocate fixed-size pages in a single index file.
package diskmanager

import (
	"fmt"
	"os"
	"sync"

	"bptreeindex/internal/page"
)

// Manager persists pages of a single index file on disk. Page 0 is
// reserved for the catalog/header page; real tree pages start at 1.
type Manager struct {
	mu       sync.RWMutex
	file     *os.File
	path     string
	nextPage int64
	closed   bool
}

// Open opens or creates the index file at path and positions the
// allocation cursor after whatever pages already exist there.
func Open(path string) (*Manager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskmanager: open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("diskmanager: stat %s: %w", path, err)
	}

	numPages := stat.Size() / page.Size
	next := numPages
	if next == 0 {
		// Page 0 is reserved for the catalog header; the first real
		// page allocated is page 1. A brand-new file has no page 0
		// yet, so write one out now — otherwise the catalog's first
		// ReadPage(0) would fail against an empty file.
		empty := make([]byte, page.Size)
		if _, err := file.WriteAt(empty, 0); err != nil {
			file.Close()
			return nil, fmt.Errorf("diskmanager: materialize catalog page: %w", err)
		}
		next = 1
	}

	return &Manager{file: file, path: path, nextPage: next}, nil
}

// ReadPage reads the page at pageID into a freshly allocated buffer.
func (m *Manager) ReadPage(pageID int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("diskmanager: %s is closed", m.path)
	}

	buf := make([]byte, page.Size)
	offset := pageID * page.Size
	n, err := m.file.ReadAt(buf, offset)
	if err != nil {
		if n == 0 {
			return nil, fmt.Errorf("diskmanager: read page %d: %w", pageID, err)
		}
		for i := n; i < page.Size; i++ {
			buf[i] = 0
		}
	}
	return buf, nil
}

// WritePage writes data, which must be exactly page.Size bytes, to
// pageID's offset.
func (m *Manager) WritePage(pageID int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("diskmanager: %s is closed", m.path)
	}
	if len(data) != page.Size {
		return fmt.Errorf("diskmanager: page %d: data size %d != %d", pageID, len(data), page.Size)
	}

	offset := pageID * page.Size
	if _, err := m.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("diskmanager: write page %d: %w", pageID, err)
	}
	return nil
}

// AllocatePage reserves and zero-initializes the next page id.
func (m *Manager) AllocatePage() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("diskmanager: %s is closed", m.path)
	}

	id := m.nextPage
	m.nextPage++

	empty := make([]byte, page.Size)
	offset := id * page.Size
	if _, err := m.file.WriteAt(empty, offset); err != nil {
		return 0, fmt.Errorf("diskmanager: allocate page %d: %w", id, err)
	}
	return id, nil
}

// DeallocatePage is a no-op: pages stay resident in the file.
// Reclaiming page space is not required by any invariant this index
// maintains, so no free list is kept — a future page-space-reuse
// feature would add one here without changing this method's contract.
func (m *Manager) DeallocatePage(pageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("diskmanager: %s is closed", m.path)
	}
	return nil
}

// Sync flushes pending writes to stable storage.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("diskmanager: %s is closed", m.path)
	}
	return m.file.Sync()
}

// Close syncs and closes the underlying file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return fmt.Errorf("diskmanager: sync before close: %w", err)
	}
	err := m.file.Close()
	m.closed = true
	return err
}
