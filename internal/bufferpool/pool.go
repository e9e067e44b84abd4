// Package bufferpool is the buffer-pool external collaborator spec.md
// §6 describes: fixed-size pinned frames fetched, allocated and
// unpinned by page id, backed by a Pager for disk I/O and a
// ristretto cache for eviction scoring.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"bptreeindex/internal/page"
)

// Pager is the on-disk storage this pool fetches from and flushes to.
// internal/diskmanager.Manager and internal/diskmanager.Memory both
// satisfy it.
type Pager interface {
	ReadPage(pageID int64) ([]byte, error)
	WritePage(pageID int64, data []byte) error
	AllocatePage() (int64, error)
	DeallocatePage(pageID int64) error
	Sync() error
	Close() error
}

// Pool is a fixed-capacity cache of page frames. Residency and pin
// accounting live in Pool itself (ristretto has no notion of a pin);
// a ristretto cache of page ids supplies eviction scoring — TinyLFU
// admission plus sampled-LFU victim selection — over the frames that
// are currently unpinned.
type Pool struct {
	mu       sync.Mutex
	pager    Pager
	capacity int
	frames   map[int64]*page.Frame
	scores   *ristretto.Cache[int64, int64]
}

// New creates a pool of the given frame capacity backed by pager.
func New(capacity int, pager Pager) (*Pool, error) {
	p := &Pool{
		capacity: capacity,
		pager:    pager,
		frames:   make(map[int64]*page.Frame, capacity),
	}

	cache, err := ristretto.NewCache(&ristretto.Config[int64, int64]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
		Metrics:     true,
		OnEvict:     p.onScoreEvict,
	})
	if err != nil {
		return nil, fmt.Errorf("bufferpool: create ristretto cache: %w", err)
	}
	p.scores = cache
	return p, nil
}

// onScoreEvict is ristretto's callback when it decides a page id is
// cold enough to drop from the eviction-candidate set. If the page is
// still resident and unpinned, this is where the frame actually
// leaves the pool (flushing it first if dirty). If it has since been
// pinned, it is left alone — a pinned frame is never evicted — and
// re-admitted so ristretto keeps scoring it once it's released.
func (p *Pool) onScoreEvict(item *ristretto.Item[int64]) {
	pageID := item.Value
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, ok := p.frames[pageID]
	if !ok {
		return
	}
	if frame.PinCount > 0 {
		p.scores.Set(pageID, pageID, 1)
		return
	}
	p.evictLocked(pageID, frame)
}

// evictLocked removes an unpinned, resident frame, flushing it first
// if dirty. Caller holds p.mu.
func (p *Pool) evictLocked(pageID int64, frame *page.Frame) {
	fmt.Printf("[BufferPool] EVICT pageID=%d dirty=%v\n", pageID, frame.Dirty)
	if frame.Dirty {
		frame.RLock()
		data := append([]byte(nil), frame.Data...)
		frame.RUnlock()
		if err := p.pager.WritePage(pageID, data); err == nil {
			frame.Dirty = false
		}
	}
	delete(p.frames, pageID)
	p.scores.Del(pageID)
}

// makeRoomLocked ensures there is space for one more resident frame,
// evicting an unpinned victim if the pool is at capacity. Caller
// holds p.mu.
func (p *Pool) makeRoomLocked() error {
	if len(p.frames) < p.capacity {
		return nil
	}

	// Give ristretto's asynchronous eviction a chance to have already
	// caught up with the scores recorded so far.
	p.mu.Unlock()
	p.scores.Wait()
	p.mu.Lock()

	if len(p.frames) < p.capacity {
		return nil
	}

	// Fall back to a deterministic scan: ristretto's eviction is
	// best-effort and asynchronous, so the pool still needs a hard
	// capacity guarantee of its own.
	for id, frame := range p.frames {
		if frame.PinCount == 0 {
			p.evictLocked(id, frame)
			return nil
		}
	}
	return fmt.Errorf("bufferpool: all %d frames are pinned, cannot evict", p.capacity)
}

// FetchPage pins and returns the frame for pageID, loading it from
// the pager on a cache miss.
func (p *Pool) FetchPage(pageID int64) (*page.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame, ok := p.frames[pageID]; ok {
		fmt.Printf("[BufferPool] HIT  pageID=%d pinCount=%d\n", pageID, frame.PinCount+1)
		frame.PinCount++
		p.scores.Get(pageID)
		p.scores.Del(pageID)
		return frame, nil
	}

	fmt.Printf("[BufferPool] MISS pageID=%d — loading from disk\n", pageID)

	if err := p.makeRoomLocked(); err != nil {
		return nil, err
	}

	data, err := p.pager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", pageID, err)
	}

	frame := page.NewFrame(pageID)
	copy(frame.Data, data)
	frame.PinCount = 1
	p.frames[pageID] = frame
	return frame, nil
}

// NewPage allocates a fresh page via the pager and returns it pinned.
func (p *Pool) NewPage() (*page.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.makeRoomLocked(); err != nil {
		return nil, err
	}

	id, err := p.pager.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("bufferpool: allocate page: %w", err)
	}

	frame := page.NewFrame(id)
	frame.PinCount = 1
	frame.Dirty = true
	p.frames[id] = frame
	return frame, nil
}

// UnpinPage decrements pageID's pin count. Once it reaches zero, the
// frame becomes a candidate for ristretto's eviction scoring again.
func (p *Pool) UnpinPage(pageID int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, ok := p.frames[pageID]
	if !ok {
		return fmt.Errorf("bufferpool: page %d not resident", pageID)
	}
	if dirty {
		frame.Dirty = true
	}
	if frame.PinCount > 0 {
		frame.PinCount--
	}
	if frame.PinCount == 0 {
		p.scores.Set(pageID, pageID, 1)
	}
	return nil
}

// DeletePage drops an unpinned page from both the pool and the pager.
func (p *Pool) DeletePage(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame, ok := p.frames[pageID]; ok {
		if frame.PinCount > 0 {
			return fmt.Errorf("bufferpool: cannot delete pinned page %d", pageID)
		}
		delete(p.frames, pageID)
		p.scores.Del(pageID)
	}
	return p.pager.DeallocatePage(pageID)
}

// FlushPage writes pageID back to the pager if dirty.
func (p *Pool) FlushPage(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, ok := p.frames[pageID]
	if !ok {
		return fmt.Errorf("bufferpool: page %d not resident", pageID)
	}
	if !frame.Dirty {
		return nil
	}
	fmt.Printf("[BufferPool]   flushing pageID=%d\n", pageID)
	frame.RLock()
	data := append([]byte(nil), frame.Data...)
	frame.RUnlock()
	if err := p.pager.WritePage(pageID, data); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", pageID, err)
	}
	frame.Dirty = false
	return nil
}

// FlushAll writes every dirty resident frame back to the pager.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	ids := make([]int64, 0, len(p.frames))
	for id := range p.frames {
		ids = append(ids, id)
	}
	fmt.Printf("[BufferPool] FlushAllPages — pool size=%d\n", len(ids))
	p.mu.Unlock()

	for _, id := range ids {
		if err := p.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes every dirty frame, drops the resident frames and
// closes the pager.
func (p *Pool) Close() error {
	if err := p.FlushAll(); err != nil {
		return err
	}
	// Closing the cache runs OnEvict for every scored page id while
	// ristretto holds its own locks; with no frames left, onScoreEvict
	// returns at once instead of calling back into the cache.
	p.mu.Lock()
	p.frames = make(map[int64]*page.Frame)
	p.mu.Unlock()
	p.scores.Close()
	return p.pager.Close()
}

// Size reports how many frames are currently resident.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Capacity reports the pool's fixed frame capacity.
func (p *Pool) Capacity() int {
	return p.capacity
}
