// Package guard detects re-entrant allocator activity so the allocator's own
// bookkeeping can never recurse into file-backed allocation.
//
// Provisioning a backing file, resizing it, and deleting it all allocate
// internally (paths, file handles, map growth). A Guard tracks, per
// goroutine, whether an allocation or deallocation is already in flight,
// plus a per-goroutine opt-out switch. Guard state never crosses goroutines:
// an in-flight deallocation elsewhere has no bearing on what this goroutine
// may do. Callers consult ShouldFallback before any file-backed work and
// route to the ordinary heap when it reports true.
package guard

import (
	"sync"

	"github.com/joshuapare/memfile/internal/goid"
)

// shardCount spreads per-goroutine state over independent locks. Power of two
// so the shard pick is a mask.
const shardCount = 64

// Guard is an explicit reentrancy-detection service. The zero value is not
// usable; construct with New. A single Guard instance is shared by one
// allocator and is safe for concurrent use.
type Guard struct {
	shards [shardCount]shard
}

type shard struct {
	mu sync.Mutex
	m  map[uint64]*gstate
}

// gstate is the per-goroutine slice of guard state. It is only ever mutated
// by its own goroutine; the shard lock protects the map around it.
type gstate struct {
	allocating   int
	deallocating int
	disabled     bool
}

func (s *gstate) idle() bool {
	return s.allocating == 0 && s.deallocating == 0 && !s.disabled
}

// New returns a ready Guard.
func New() *Guard {
	g := &Guard{}
	for i := range g.shards {
		g.shards[i].m = make(map[uint64]*gstate, 16)
	}
	return g
}

func (g *Guard) shard(id uint64) *shard {
	return &g.shards[id&(shardCount-1)]
}

// get returns the state for id, creating it when absent. The shard lock must
// not be held by the caller.
func (g *Guard) get(id uint64) *gstate {
	sh := g.shard(id)
	sh.mu.Lock()
	st, ok := sh.m[id]
	if !ok {
		st = &gstate{}
		sh.m[id] = st
	}
	sh.mu.Unlock()
	return st
}

// drop removes id's state when it has returned to idle, so short-lived
// goroutines do not accumulate entries.
func (g *Guard) drop(id uint64) {
	sh := g.shard(id)
	sh.mu.Lock()
	if st, ok := sh.m[id]; ok && st.idle() {
		delete(sh.m, id)
	}
	sh.mu.Unlock()
}

// ShouldFallback reports whether the calling goroutine must use the ordinary
// heap: it opted out, or it is already inside an allocation or deallocation.
func (g *Guard) ShouldFallback() bool {
	id := goid.ID()
	sh := g.shard(id)
	sh.mu.Lock()
	st, ok := sh.m[id]
	blocked := ok && (st.disabled || st.allocating > 0 || st.deallocating > 0)
	sh.mu.Unlock()
	return blocked
}

// EnterAllocate marks the calling goroutine as inside an allocation. Every
// EnterAllocate must be paired with a LeaveAllocate on all exit paths;
// callers defer the release immediately.
func (g *Guard) EnterAllocate() {
	g.get(goid.ID()).allocating++
}

// LeaveAllocate undoes EnterAllocate.
func (g *Guard) LeaveAllocate() {
	id := goid.ID()
	st := g.get(id)
	if st.allocating <= 0 {
		panic("guard: LeaveAllocate without matching EnterAllocate")
	}
	st.allocating--
	g.drop(id)
}

// EnterDeallocate marks the calling goroutine as inside a deallocation.
// Deleting a backing file allocates internally, so the raised state keeps
// that from recursing into file-backed allocation.
func (g *Guard) EnterDeallocate() {
	g.get(goid.ID()).deallocating++
}

// LeaveDeallocate undoes EnterDeallocate.
func (g *Guard) LeaveDeallocate() {
	id := goid.ID()
	st := g.get(id)
	if st.deallocating <= 0 {
		panic("guard: LeaveDeallocate without matching EnterDeallocate")
	}
	st.deallocating--
	g.drop(id)
}

// SetEnabled turns file-backed allocation on or off for the calling
// goroutine. Passing false routes every operation from this goroutine to the
// fallback until re-enabled; background machinery that must never be
// intercepted uses this.
func (g *Guard) SetEnabled(enabled bool) {
	id := goid.ID()
	st := g.get(id)
	st.disabled = !enabled
	g.drop(id)
}
