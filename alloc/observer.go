package alloc

import (
	"os"

	"github.com/joshuapare/memfile/alloc/backing"
)

// Info describes one live file-backed allocation at event time.
type Info struct {
	// Addr is the allocation's base address, the registry key.
	Addr uintptr
	// Size is the current byte length, equal to the backing file's length.
	Size int
	// Path locates the backing file.
	Path string
	// File is the shared handle to the backing file. Observers may read
	// through it; resizing or closing it stays the allocator's job.
	File *os.File
}

// Observer receives allocation lifecycle events. Events fire while the
// operation's reentrancy guard is raised, so an observer that allocates
// through the same allocator lands on the fallback instead of deadlocking.
// Implementations that want file-backed allocations of their own must do
// that work on another goroutine.
type Observer interface {
	// AllocationCreated fires after a new allocation is registered.
	AllocationCreated(info Info)

	// AllocationResized fires once the resized allocation is registered. old
	// carries the pre-resize address and size; the superseded mapping itself
	// is gone by then, so old.Addr identifies the allocation rather than
	// addressing memory. Path and the still-open File are shared by both
	// sides.
	AllocationResized(info, old Info)

	// AllocationFreed fires after the registry entry is removed and before
	// the mapping, file handle and backing file are torn down, so the shared
	// file is still readable.
	AllocationFreed(info Info)
}

// NopObserver ignores every event. It is the default.
type NopObserver struct{}

func (NopObserver) AllocationCreated(Info)       {}
func (NopObserver) AllocationResized(Info, Info) {}
func (NopObserver) AllocationFreed(Info)         {}

// MultiObserver fans each event out to its members in order.
type MultiObserver []Observer

func (m MultiObserver) AllocationCreated(info Info) {
	for _, o := range m {
		o.AllocationCreated(info)
	}
}

func (m MultiObserver) AllocationResized(info, old Info) {
	for _, o := range m {
		o.AllocationResized(info, old)
	}
}

func (m MultiObserver) AllocationFreed(info Info) {
	for _, o := range m {
		o.AllocationFreed(info)
	}
}

func infoOf(r *backing.Region) Info {
	return Info{Addr: r.Addr(), Size: r.Size(), Path: r.Path(), File: r.File()}
}
