package alloc

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/memfile/alloc/backing"
)

// State returns a snapshot of every live file-backed allocation: base
// address to backing file path. The snapshot is taken under a read lock and
// is a copy; two calls with no intervening mutation return equal maps.
func (a *Allocator) State() map[uintptr]string {
	return a.table.Snapshot()
}

// Locate returns the backing file path of the allocation whose span contains
// p. Unlike State, p may point anywhere inside the allocation, not just at
// its base.
func (a *Allocator) Locate(p unsafe.Pointer) (string, bool) {
	r, ok := a.table.Locate(uintptr(p))
	if !ok {
		return "", false
	}
	return r.Path(), true
}

// PathOf returns the backing file path of the allocation buf points into.
func (a *Allocator) PathOf(buf []byte) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}
	return a.Locate(unsafe.Pointer(unsafe.SliceData(buf)))
}

// Flush forces buf's dirty bytes through to its backing file. Flushing a
// buffer that is not file-backed is a no-op: its bytes have no file to
// reach.
func (a *Allocator) Flush(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	region, ok := a.table.Lookup(backing.AddressOf(buf))
	if !ok {
		return nil
	}
	return region.Flush()
}

// String renders the live allocation table, one line per allocation in
// address order.
func (a *Allocator) String() string {
	type entry struct {
		addr uintptr
		size int
		path string
	}

	var entries []entry
	a.table.Each(func(addr uintptr, r *backing.Region) {
		entries = append(entries, entry{addr: addr, size: r.Size(), path: r.Path()})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].addr < entries[j].addr })

	var b strings.Builder
	fmt.Fprintf(&b, "file-backed allocation state (%d live):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- 0x%08x  %-10s %s\n", e.addr, humanize.IBytes(uint64(e.size)), e.path)
	}
	return b.String()
}
