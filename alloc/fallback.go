package alloc

import "github.com/joshuapare/memfile/alloc/backing"

// Fallback services operations that must not take the file-backed path. It
// mirrors the facade's operation set over ordinary memory, carries no state
// and has no side effects beyond delegation.
type Fallback interface {
	Allocate(layout Layout) []byte
	AllocateZeroed(layout Layout) []byte
	Grow(buf []byte, oldLayout, newLayout Layout) []byte
	GrowZeroed(buf []byte, oldLayout, newLayout Layout) []byte
	Shrink(buf []byte, oldLayout, newLayout Layout) []byte
	Deallocate(buf []byte, layout Layout)
}

// HeapFallback allocates from the Go heap and leaves reclamation to the
// garbage collector. It is the default.
type HeapFallback struct{}

// alignedMake over-allocates by the alignment and slices at the first
// aligned offset, since make only guarantees the runtime's own alignment.
func alignedMake(layout Layout) []byte {
	buf := make([]byte, layout.Size+layout.Align)
	shift := 0
	if rem := int(backing.AddressOf(buf) % uintptr(layout.Align)); rem != 0 {
		shift = layout.Align - rem
	}
	return buf[shift : shift+layout.Size : shift+layout.Size]
}

func (HeapFallback) Allocate(layout Layout) []byte {
	return alignedMake(layout)
}

// AllocateZeroed is identical to Allocate; fresh heap memory is zeroed.
func (HeapFallback) AllocateZeroed(layout Layout) []byte {
	return alignedMake(layout)
}

func (f HeapFallback) Grow(buf []byte, _, newLayout Layout) []byte {
	out := alignedMake(newLayout)
	copy(out, buf)
	return out
}

// GrowZeroed is identical to Grow; the bytes past the copied prefix come
// from fresh heap memory.
func (f HeapFallback) GrowZeroed(buf []byte, oldLayout, newLayout Layout) []byte {
	return f.Grow(buf, oldLayout, newLayout)
}

func (f HeapFallback) Shrink(buf []byte, _, newLayout Layout) []byte {
	out := alignedMake(newLayout)
	copy(out, buf)
	return out
}

// Deallocate does nothing; the garbage collector owns heap buffers.
func (HeapFallback) Deallocate([]byte, Layout) {}
