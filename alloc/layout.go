package alloc

import (
	"fmt"
	"os"
)

// pageSize bounds the alignment the file-backed path can honor: mappings are
// page-aligned, so every smaller power-of-two alignment holds for free.
var pageSize = os.Getpagesize()

// Layout describes one allocation request: a byte size and a power-of-two
// alignment the returned memory must honor.
type Layout struct {
	Size  int
	Align int
}

// LayoutOf returns a layout for size bytes at the default 8-byte alignment.
func LayoutOf(size int) Layout {
	return Layout{Size: size, Align: 8}
}

func (l Layout) String() string {
	return fmt.Sprintf("size %d, align %d", l.Size, l.Align)
}

func (l Layout) validate() error {
	if l.Size < 0 || l.Align <= 0 || l.Align&(l.Align-1) != 0 {
		return ErrBadLayout
	}
	return nil
}

// routable reports whether the file-backed path can service this layout at
// all: zero-size regions are not representable, and alignment beyond a page
// cannot come from a mapping. Routing is a pure function of the layout, so
// allocate and deallocate always agree on the path taken for a given buffer.
func (l Layout) routable() bool {
	return l.Size > 0 && l.Align <= pageSize
}
