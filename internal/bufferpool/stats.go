package bufferpool

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"bptreeindex/internal/page"
)

// Stats is a point-in-time snapshot of pool occupancy, useful for
// operator-facing diagnostics.
type Stats struct {
	Resident int
	Pinned   int
	Dirty    int
	Capacity int
}

// Stats reports current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Resident: len(p.frames), Capacity: p.capacity}
	for _, frame := range p.frames {
		if frame.PinCount > 0 {
			s.Pinned++
		}
		if frame.Dirty {
			s.Dirty++
		}
	}
	return s
}

// String renders stats with human-readable byte sizes, e.g.
// "128/512 frames resident (524 kB/2.1 MB), 3 pinned, 7 dirty".
func (s Stats) String() string {
	residentBytes := humanize.Bytes(uint64(s.Resident) * page.Size)
	capacityBytes := humanize.Bytes(uint64(s.Capacity) * page.Size)
	return fmt.Sprintf(
		"%d/%d frames resident (%s/%s), %d pinned, %d dirty",
		s.Resident, s.Capacity, residentBytes, capacityBytes, s.Pinned, s.Dirty,
	)
}
