package alloc

import "unsafe"

// Default is the process-wide allocator behind the package-level functions.
// It is constructed with all defaults; programs wanting collaborators attach
// them by replacing Default before first use.
var Default = New()

// Allocate calls Default.Allocate.
func Allocate(layout Layout) ([]byte, error) { return Default.Allocate(layout) }

// AllocateZeroed calls Default.AllocateZeroed.
func AllocateZeroed(layout Layout) ([]byte, error) { return Default.AllocateZeroed(layout) }

// Grow calls Default.Grow.
func Grow(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	return Default.Grow(buf, oldLayout, newLayout)
}

// GrowZeroed calls Default.GrowZeroed.
func GrowZeroed(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	return Default.GrowZeroed(buf, oldLayout, newLayout)
}

// Shrink calls Default.Shrink.
func Shrink(buf []byte, oldLayout, newLayout Layout) ([]byte, error) {
	return Default.Shrink(buf, oldLayout, newLayout)
}

// Deallocate calls Default.Deallocate.
func Deallocate(buf []byte, layout Layout) error { return Default.Deallocate(buf, layout) }

// State calls Default.State.
func State() map[uintptr]string { return Default.State() }

// Locate calls Default.Locate.
func Locate(p unsafe.Pointer) (string, bool) { return Default.Locate(p) }
