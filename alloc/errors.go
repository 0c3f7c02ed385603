package alloc

import "errors"

var (
	// ErrDeclined indicates the confirmation provider refused the allocation.
	// Recoverable: the caller's attempt fails exactly as if memory were
	// exhausted.
	ErrDeclined = errors.New("alloc: allocation declined")

	// ErrNoPath indicates the path provider yielded no backing file path.
	ErrNoPath = errors.New("alloc: no backing file path available")

	// ErrBadLayout indicates a negative size or an alignment that is zero or
	// not a power of two.
	ErrBadLayout = errors.New("alloc: invalid layout")

	// ErrAlignment indicates a resize target alignment beyond the page size,
	// which a file mapping cannot guarantee.
	ErrAlignment = errors.New("alloc: alignment exceeds page size")

	// ErrZeroResize indicates a resize of a file-backed allocation to zero
	// bytes; zero-length mappings are not representable.
	ErrZeroResize = errors.New("alloc: cannot resize a file-backed allocation to zero bytes")

	// ErrFallbackResize indicates a resize of a fallback buffer to a layout
	// the file-backed path services. A buffer never changes backing: one
	// born on the fallback resizes only to layouts the fallback handles.
	ErrFallbackResize = errors.New("alloc: cannot resize a fallback buffer onto the file-backed path")
)
