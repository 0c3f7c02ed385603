package alloc

import (
	"fmt"

	"github.com/joshuapare/memfile/alloc/backing"
	"github.com/joshuapare/memfile/alloc/guard"
	"github.com/joshuapare/memfile/alloc/registry"
)

// Allocator backs every allocation with a dedicated memory-mapped file. See
// the package documentation for the full behavior contract.
//
// An Allocator is safe for concurrent use. Two unrelated operations may
// provision or release files concurrently; only the brief registry
// transitions serialize.
type Allocator struct {
	guard    *guard.Guard
	table    *registry.Table
	confirm  Confirmer
	paths    PathProvider
	observer Observer
	fallback Fallback
	stats    counters
}

// New returns an allocator wired to the given collaborators, with no-op or
// temp-dir defaults for anything not configured.
func New(opts ...Option) *Allocator {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Allocator{
		guard:    guard.New(),
		table:    registry.New(cfg.capacity),
		confirm:  cfg.confirm,
		paths:    cfg.paths,
		observer: cfg.observer,
		fallback: cfg.fallback,
	}
}

// Allocate returns a buffer of layout.Size bytes backed by a dedicated file.
// The buffer reads as zeros: file-backed memory is always born zero-filled.
// Requests the file-backed path cannot take (re-entrant calls, opted-out
// goroutines, zero sizes, page-exceeding alignments) come from the fallback
// instead and involve no file.
func (a *Allocator) Allocate(layout Layout) ([]byte, error) {
	return a.allocate(layout, a.fallback.Allocate)
}

// AllocateZeroed is Allocate with explicitly zeroed contents. The file-backed
// path is identical; only the fallback delegation differs.
func (a *Allocator) AllocateZeroed(layout Layout) ([]byte, error) {
	return a.allocate(layout, a.fallback.AllocateZeroed)
}

func (a *Allocator) allocate(layout Layout, fallback func(Layout) []byte) ([]byte, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	if a.guard.ShouldFallback() || !layout.routable() {
		a.stats.fallbacks.Add(1)
		return fallback(layout), nil
	}

	// Raised before any other work, collaborator callbacks included, so
	// nothing an allocation does can recurse into another file-backed
	// allocation on this goroutine.
	a.guard.EnterAllocate()
	defer a.guard.LeaveAllocate()

	if !a.confirm.Confirm(layout) {
		return nil, ErrDeclined
	}
	path, ok := a.paths.NextPath(layout)
	if !ok {
		return nil, ErrNoPath
	}

	region, err := backing.Provision(path, layout.Size)
	if err != nil {
		return nil, fmt.Errorf("alloc: provision %s: %w", path, err)
	}

	a.table.Insert(region)
	a.observer.AllocationCreated(infoOf(region))

	a.stats.allocs.Add(1)
	a.stats.liveBytes.Add(int64(layout.Size))
	return region.Bytes(), nil
}

// Grow resizes buf to newLayout.Size bytes, at least its current size. The
// returned buffer starts with buf's contents; the added bytes read as zero
// (file extension zero-fills for free). The returned base address may differ
// from buf's, and buf is invalid afterwards.
//
// buf must be the current buffer of a live allocation made through this
// allocator, with oldLayout the layout it was last allocated or resized
// with; a file-backed resize of an unknown buffer panics.
func (a *Allocator) Grow(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if newLayout.Size < oldLayout.Size {
		panic(fmt.Sprintf("alloc: grow to smaller size (%d -> %d)", oldLayout.Size, newLayout.Size))
	}
	return a.resize(buf, oldLayout, newLayout, a.fallback.Grow)
}

// GrowZeroed is Grow with explicitly zeroed growth. The file-backed path is
// identical; only the fallback delegation differs.
func (a *Allocator) GrowZeroed(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if newLayout.Size < oldLayout.Size {
		panic(fmt.Sprintf("alloc: grow to smaller size (%d -> %d)", oldLayout.Size, newLayout.Size))
	}
	return a.resize(buf, oldLayout, newLayout, a.fallback.GrowZeroed)
}

// Shrink resizes buf to newLayout.Size bytes, at most its current size. The
// retained prefix is untouched. The same ownership contract as Grow applies.
func (a *Allocator) Shrink(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if newLayout.Size > oldLayout.Size {
		panic(fmt.Sprintf("alloc: shrink to larger size (%d -> %d)", oldLayout.Size, newLayout.Size))
	}
	return a.resize(buf, oldLayout, newLayout, a.fallback.Shrink)
}

func (a *Allocator) resize(
	buf []byte,
	oldLayout, newLayout Layout,
	fallback func([]byte, Layout, Layout) []byte,
) ([]byte, error) {
	if err := oldLayout.validate(); err != nil {
		return nil, err
	}
	if err := newLayout.validate(); err != nil {
		return nil, err
	}

	// A guarded call means buf is ordinary heap memory; resize it there too.
	if a.guard.ShouldFallback() {
		a.stats.fallbacks.Add(1)
		return fallback(buf, oldLayout, newLayout), nil
	}

	// An old layout the file-backed path never services means buf came from
	// the fallback, and a buffer never changes backing. Targets the
	// file-backed path would claim are refused rather than migrated.
	if !oldLayout.routable() {
		if newLayout.routable() {
			return nil, ErrFallbackResize
		}
		a.stats.fallbacks.Add(1)
		return fallback(buf, oldLayout, newLayout), nil
	}

	// The file-backed allocation cannot migrate to the heap either, so
	// targets its path cannot express are refused before any state changes.
	if newLayout.Size == 0 {
		return nil, ErrZeroResize
	}
	if newLayout.Align > pageSize {
		return nil, ErrAlignment
	}

	a.guard.EnterAllocate()
	defer a.guard.LeaveAllocate()

	addr := backing.AddressOf(buf)
	region, ok := a.table.Lookup(addr)
	if !ok {
		panic(fmt.Sprintf("alloc: resize of 0x%x, which has no file-backed registry entry", addr))
	}
	old := infoOf(region)

	repl, err := region.Remap(newLayout.Size)
	if err != nil {
		// The old mapping is already gone. Drop the allocation entirely
		// rather than leave a registry entry whose resources are half torn
		// down.
		a.table.Remove(addr)
		_ = region.Release(true)
		return nil, fmt.Errorf("alloc: resize %s: %w", old.Path, err)
	}

	// One critical section replaces the old key with the new one, so
	// concurrent readers see exactly one of the two entries. The observer
	// hears about the move while the shared file handle is still valid.
	a.table.Swap(addr, repl)
	a.observer.AllocationResized(infoOf(repl), old)

	if newLayout.Size >= oldLayout.Size {
		a.stats.grows.Add(1)
	} else {
		a.stats.shrinks.Add(1)
	}
	a.stats.liveBytes.Add(int64(newLayout.Size - old.Size))
	return repl.Bytes(), nil
}

// Deallocate releases buf: the registry entry goes first, then the mapping,
// then the file handle, and the backing file is deleted last. layout must be
// the layout buf was last allocated or resized with; a file-backed
// deallocation of an unknown buffer panics.
//
// A file-backed buffer handed to Deallocate while the guard forces the
// fallback (re-entrant call, opted-out goroutine) is silently leaked: the
// fallback treats it as heap memory, which for deallocation is a no-op.
func (a *Allocator) Deallocate(buf []byte, layout Layout) error {
	if err := layout.validate(); err != nil {
		return err
	}
	if a.guard.ShouldFallback() || !layout.routable() {
		a.stats.fallbacks.Add(1)
		a.fallback.Deallocate(buf, layout)
		return nil
	}

	// Deleting a file allocates internally; the raised deallocation state
	// keeps that from recursing here.
	a.guard.EnterDeallocate()
	defer a.guard.LeaveDeallocate()

	addr := backing.AddressOf(buf)
	region, ok := a.table.Remove(addr)
	if !ok {
		panic(fmt.Sprintf("alloc: deallocate of 0x%x, which has no file-backed registry entry", addr))
	}

	a.observer.AllocationFreed(infoOf(region))

	size := region.Size()
	if err := region.Release(true); err != nil {
		return fmt.Errorf("alloc: release %s: %w", region.Path(), err)
	}

	a.stats.frees.Add(1)
	a.stats.liveBytes.Add(int64(-size))
	return nil
}

// EnableInGoroutine turns file-backed allocation on or off for the calling
// goroutine. Passing false sends every operation from this goroutine to the
// fallback until re-enabled, for machinery that must never be intercepted.
//
// Buffers obtained while disabled are ordinary heap memory. Resize and
// deallocate them while still disabled; after re-enabling, the file-backed
// path treats them as foreign.
func (a *Allocator) EnableInGoroutine(enabled bool) {
	a.guard.SetEnabled(enabled)
}
