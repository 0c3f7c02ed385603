package alloc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Confirmer decides, per request, whether an allocation may proceed. A false
// answer fails the allocation with ErrDeclined and creates no state.
type Confirmer interface {
	Confirm(layout Layout) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(Layout) bool

func (f ConfirmerFunc) Confirm(layout Layout) bool { return f(layout) }

// AlwaysConfirm approves every allocation. It is the default.
var AlwaysConfirm Confirmer = ConfirmerFunc(func(Layout) bool { return true })

// PathProvider yields the backing file location for the next allocation.
// Returning ok=false fails the allocation with ErrNoPath. Paths must not
// collide between live allocations.
type PathProvider interface {
	NextPath(layout Layout) (path string, ok bool)
}

// DefaultDir returns the directory backing files land in when no provider is
// configured: a fixed subdirectory of the system temporary directory, shared
// by every allocator in the process.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "memfile")
}

// CounterPaths names backing files with a monotonically increasing counter
// under a fixed directory, which keeps paths collision-free for the process
// lifetime. Two processes pointed at the same directory can collide; use
// UUIDPaths for shared directories.
type CounterPaths struct {
	dir  string
	next atomic.Uint64
}

// NewCounterPaths returns a counter provider rooted at dir.
func NewCounterPaths(dir string) *CounterPaths {
	return &CounterPaths{dir: dir}
}

// NextPath creates the root directory if needed and returns the next counter
// path. Directory creation is retried on every call, mirroring how the files
// themselves appear and disappear underneath it.
func (p *CounterPaths) NextPath(Layout) (string, bool) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", false
	}
	return filepath.Join(p.dir, fmt.Sprintf("alloc_%010d.mem", p.next.Add(1)-1)), true
}

// UUIDPaths names backing files with a random UUID under a fixed directory,
// safe for directories shared between processes.
type UUIDPaths struct {
	dir string
}

// NewUUIDPaths returns a UUID provider rooted at dir.
func NewUUIDPaths(dir string) *UUIDPaths {
	return &UUIDPaths{dir: dir}
}

func (p *UUIDPaths) NextPath(Layout) (string, bool) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", false
	}
	return filepath.Join(p.dir, fmt.Sprintf("alloc_%s.mem", uuid.NewString())), true
}
