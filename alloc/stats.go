package alloc

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// counters tallies allocator activity. All fields are cumulative except
// liveBytes, which tracks the current total.
type counters struct {
	allocs    atomic.Int64
	frees     atomic.Int64
	grows     atomic.Int64
	shrinks   atomic.Int64
	fallbacks atomic.Int64
	liveBytes atomic.Int64
}

// Stats is a point-in-time summary of allocator activity. Counts are
// cumulative since construction; Live and LiveBytes describe the present.
type Stats struct {
	Live      int
	LiveBytes int64
	Allocs    int64
	Frees     int64
	Grows     int64
	Shrinks   int64
	Fallbacks int64
}

// Stats returns the current summary. The counters are read individually, so
// a snapshot taken during concurrent activity is approximate.
func (a *Allocator) Stats() Stats {
	return Stats{
		Live:      a.table.Len(),
		LiveBytes: a.stats.liveBytes.Load(),
		Allocs:    a.stats.allocs.Load(),
		Frees:     a.stats.frees.Load(),
		Grows:     a.stats.grows.Load(),
		Shrinks:   a.stats.shrinks.Load(),
		Fallbacks: a.stats.fallbacks.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"%d live (%s), %d allocs, %d frees, %d grows, %d shrinks, %d fallbacks",
		s.Live, humanize.IBytes(uint64(max(s.LiveBytes, 0))),
		s.Allocs, s.Frees, s.Grows, s.Shrinks, s.Fallbacks,
	)
}
