// Package backing provisions and resizes the store behind each file-backed
// allocation: one regular file per region, mapped read/write over its full
// length, with the file length always equal to the region size.
package backing

import (
	"errors"
	"os"
	"unsafe"
)

var (
	// ErrBadSize indicates a requested region size that is zero or negative.
	// Zero-length mappings are not representable; callers route those
	// requests elsewhere before reaching this package.
	ErrBadSize = errors.New("backing: region size must be positive")

	// ErrReleased indicates use of a region whose resources are already gone.
	ErrReleased = errors.New("backing: region already released")
)

// Region is one live backing store: an open file plus an exclusively owned
// read/write view of its full contents. Its base address is the allocation's
// pointer value.
//
// A Region's identity fields (path, size, address) never change; Remap
// produces a replacement Region instead of mutating the receiver, so
// concurrent holders of the old value keep reading consistent data. The
// *os.File is shared between a Region, its replacements, and any observer
// holding it; observers only ever read through it, and resizing or closing
// it remains the owner's job.
type Region struct {
	f    *os.File
	path string
	data []byte
	size int
}

// Bytes returns the region's contents. The slice aliases the mapping and is
// invalidated by Remap and Release.
func (r *Region) Bytes() []byte { return r.data }

// Addr returns the base address of the region's view, 0 if released.
func (r *Region) Addr() uintptr { return AddressOf(r.data) }

// Size returns the region length in bytes.
func (r *Region) Size() int { return r.size }

// Path returns the location of the backing file.
func (r *Region) Path() string { return r.path }

// File returns the shared handle to the backing file. Callers other than the
// owner must treat it as read-only.
func (r *Region) File() *os.File { return r.f }

// AddressOf returns the base address of b's underlying array, 0 for a nil
// slice.
func AddressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
