// Package registry tracks every live file-backed allocation, keyed by base
// address. It is the source of truth for "is this pointer ours".
package registry

import (
	"fmt"
	"sync"

	"github.com/joshuapare/memfile/alloc/backing"
)

// DefaultCapacity pre-sizes the table far beyond plausible concurrent
// allocation counts. The table must not grow its own storage while an
// operation holds the lock with the reentrancy guard raised; that growth
// would itself be an allocation request from inside the allocator.
const DefaultCapacity = 1 << 20

// Table maps the base address of each live allocation to its backing region.
// Reads take the shared lock, inserts and removals the exclusive one, and the
// lock is never held across filesystem or mapping calls; callers do that work
// first and only lock for the map transition itself.
//
// The map itself materializes on the first insert, so an unused table costs
// nothing despite the large default capacity.
type Table struct {
	mu       sync.RWMutex
	capacity int
	m        map[uintptr]*backing.Region
}

// New returns a table that will pre-size itself to capacity entries on first
// use. Zero or negative capacity selects DefaultCapacity.
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{capacity: capacity}
}

// Insert records r under its base address. Two live regions can never share
// an address, so an occupied key means allocator state is corrupt and there
// is nothing sane left to do.
func (t *Table) Insert(r *backing.Region) {
	addr := r.Addr()
	t.mu.Lock()
	if t.m == nil {
		t.m = make(map[uintptr]*backing.Region, t.capacity)
	}
	if _, exists := t.m[addr]; exists {
		t.mu.Unlock()
		panic(fmt.Sprintf("registry: duplicate key 0x%x", addr))
	}
	t.m[addr] = r
	t.mu.Unlock()
}

// Remove deletes and returns the region registered at addr.
func (t *Table) Remove(addr uintptr) (*backing.Region, bool) {
	t.mu.Lock()
	r, ok := t.m[addr]
	if ok {
		delete(t.m, addr)
	}
	t.mu.Unlock()
	return r, ok
}

// Lookup returns the region registered at addr.
func (t *Table) Lookup(addr uintptr) (*backing.Region, bool) {
	t.mu.RLock()
	r, ok := t.m[addr]
	t.mu.RUnlock()
	return r, ok
}

// Swap replaces the entry at oldAddr with repl under repl's own address in
// one critical section, so concurrent readers observe exactly one of the two
// entries, never both and never neither. A missing old entry means the
// caller resized an allocation it never looked up.
func (t *Table) Swap(oldAddr uintptr, repl *backing.Region) {
	newAddr := repl.Addr()
	t.mu.Lock()
	if _, ok := t.m[oldAddr]; !ok {
		t.mu.Unlock()
		panic(fmt.Sprintf("registry: swap of unknown key 0x%x", oldAddr))
	}
	delete(t.m, oldAddr)
	t.m[newAddr] = repl
	t.mu.Unlock()
}

// Snapshot returns the current address-to-path view of all live allocations.
func (t *Table) Snapshot() map[uintptr]string {
	t.mu.RLock()
	out := make(map[uintptr]string, len(t.m))
	for addr, r := range t.m {
		out[addr] = r.Path()
	}
	t.mu.RUnlock()
	return out
}

// Locate finds the region whose span [base, base+size) contains p, which
// lets callers introspect interior pointers, not just base addresses.
func (t *Table) Locate(p uintptr) (*backing.Region, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for addr, r := range t.m {
		if p >= addr && p < addr+uintptr(r.Size()) {
			return r, true
		}
	}
	return nil, false
}

// Each calls fn for every live entry while holding the shared lock. fn must
// not call back into the table or into anything that allocates through it.
func (t *Table) Each(fn func(addr uintptr, r *backing.Region)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for addr, r := range t.m {
		fn(addr, r)
	}
}

// Len returns the number of live allocations.
func (t *Table) Len() int {
	t.mu.RLock()
	n := len(t.m)
	t.mu.RUnlock()
	return n
}
