// Package alloc is a memory allocator that backs every allocation with a
// dedicated memory-mapped file instead of drawing from the process heap.
//
// # Overview
//
// Each Allocate call creates one regular file, sizes it to the requested
// length and maps it read/write; the mapping's base address is the
// allocation's pointer value. Grow and Shrink resize the file and remap it,
// Deallocate unmaps, closes and deletes it. The file length always equals
// the allocation size, so every live allocation is inspectable (and
// editable) from outside the process with nothing more than ls and a hex
// editor.
//
// # Operation Set
//
// The facade exposes the conventional allocator operations plus
// introspection:
//
//   - Allocate / AllocateZeroed: new zero-filled buffer, one new file
//   - Grow / GrowZeroed: extend, keeping contents; growth reads as zero
//   - Shrink: truncate, keeping the retained prefix
//   - Deallocate: release mapping, handle and file
//   - State: snapshot of base address -> backing file path
//   - Locate / PathOf: which file backs this pointer (interior pointers too)
//   - Flush: force dirty bytes to the file
//   - Stats / String: activity counters and a live table dump
//
// # Reentrancy and the Fallback
//
// Provisioning a file allocates internally (paths, handles, bookkeeping), so
// the allocator must never service its own machinery's allocations. Every
// operation first consults a reentrancy guard; when the calling goroutine is
// already inside an operation or has opted out via EnableInGoroutine(false),
// the operation is served by the Fallback (ordinary heap memory) instead.
// Guard state is goroutine-local, so operations on different goroutines
// never route each other to the fallback. Collaborator callbacks run with
// the guard raised, so even a Confirmer that itself allocates cannot
// recurse.
//
// Buffers the fallback produced are indistinguishable from file-backed ones
// to the caller but have no registry entry. A buffer from a guarded call
// carries a layout the router sends file-backed once the guard drops, so
// handing it back later panics on the missing entry: keep allocation and
// deallocation of a buffer on the same side of the guard. Deallocating any
// buffer while the guard forces the fallback is a no-op (the garbage
// collector owns heap buffers), which silently leaks the backing file when
// the buffer was file-backed. Both sharp edges are inherent to running two
// allocators behind one interface.
//
// # Zero Sizes and Alignment
//
// Zero-length mappings are not representable, so zero-size requests are
// deterministically served by the fallback and resizing a file-backed
// allocation to zero fails with ErrZeroResize. Mappings are page-aligned,
// which satisfies every alignment up to the page size; larger alignments
// are served by the fallback at Allocate time and refused with ErrAlignment
// as resize targets. The pinning holds in the other direction too: resizing
// a fallback buffer to a layout the file-backed path services fails with
// ErrFallbackResize.
//
// # Collaborators
//
// Construction accepts optional collaborators (no compile-time knobs):
//
//   - Confirmer: may veto each allocation (default: always yes)
//   - PathProvider: names each backing file (default: counter files under
//     DefaultDir())
//   - Observer: hears created/resized/freed events; the audit and viz
//     packages plug in here
//
// # Usage Example
//
//	a := alloc.New(alloc.WithPathProvider(alloc.NewCounterPaths(dir)))
//
//	buf, err := a.Allocate(alloc.LayoutOf(1024))
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//
//	buf, err = a.Grow(buf, alloc.LayoutOf(1024), alloc.LayoutOf(4096))
//	if err != nil {
//	    return err
//	}
//
//	path, _ := a.PathOf(buf) // the file holding these bytes
//	_ = a.Deallocate(buf, alloc.LayoutOf(4096))
//
// # Thread Safety
//
// All methods are safe for concurrent use. The registry lock is held only
// for map transitions, never across filesystem or mapping calls, and is
// pre-sized so bookkeeping growth cannot recurse into the allocator.
//
// # Performance
//
// Every allocation costs a file creation, a truncate and a mapping; every
// deallocation costs an unlink. Performance is explicitly not the point.
//
// # Related Packages
//
//   - github.com/joshuapare/memfile/alloc/backing: file + mapping mechanics
//   - github.com/joshuapare/memfile/alloc/registry: live allocation table
//   - github.com/joshuapare/memfile/alloc/guard: reentrancy detection
//   - github.com/joshuapare/memfile/audit: companion-file audit logs
//   - github.com/joshuapare/memfile/viz: live event feed for viewers
package alloc
