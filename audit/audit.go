// Package audit records the life of each file-backed allocation in a
// companion markdown file next to the backing file itself: creation
// metadata and goroutine stack, every resize, and the deallocation with a
// digest of the final contents. Companion files outlive their allocations,
// so a directory of .md files remains as the audit trail after the memory
// is long gone.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/joshuapare/memfile/alloc"
)

// Logger implements alloc.Observer by appending to one companion file per
// allocation. Attach it with alloc.WithObserver.
//
// Observer callbacks carry no error channel, so audit IO failures are
// reported through OnError and never interrupt the allocation they
// describe. A Logger is safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	open map[string]*os.File

	// OnError receives every audit failure. Leave nil to drop them.
	OnError func(error)
}

// New returns a Logger with no allocations under watch.
func New() *Logger {
	return &Logger{open: make(map[string]*os.File)}
}

// LogPath returns the companion file path for a backing file: the same
// location with the extension swapped for .md.
func LogPath(backingPath string) string {
	return strings.TrimSuffix(backingPath, filepath.Ext(backingPath)) + ".md"
}

// AllocationCreated opens the companion file and writes the metadata and
// creation stack sections.
func (l *Logger) AllocationCreated(info alloc.Info) {
	path := LogPath(info.Path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		l.report(fmt.Errorf("audit: create %s: %w", path, err))
		return
	}

	_, err = fmt.Fprintf(f,
		"# Metadata\n- Allocation path: %s\n- Size: %d bytes\n\n# Allocation\n```\n%s```\n\n# Events\n\n",
		info.Path, info.Size, debug.Stack(),
	)
	if err != nil {
		l.report(fmt.Errorf("audit: log allocation %s: %w", info.Path, err))
	}

	l.mu.Lock()
	stale := l.open[info.Path]
	l.open[info.Path] = f
	l.mu.Unlock()

	// A path provider may hand out a path again after its allocation was
	// freed; the stale handle from a missed free has nothing left to record.
	if stale != nil {
		_ = stale.Close()
	}
}

// AllocationResized appends a resize section. The backing path is the stable
// identity of an allocation across resizes, so the entry opened at creation
// keeps collecting events no matter how often the base address moves.
func (l *Logger) AllocationResized(info, old alloc.Info) {
	l.mu.Lock()
	f := l.open[info.Path]
	l.mu.Unlock()
	if f == nil {
		l.report(fmt.Errorf("audit: resize of untracked allocation %s", info.Path))
		return
	}

	_, err := fmt.Fprintf(f,
		"## Resize\nNew size: %d bytes (was %d)\n```\n%s```\n\n",
		info.Size, old.Size, debug.Stack(),
	)
	if err != nil {
		l.report(fmt.Errorf("audit: log resize %s: %w", info.Path, err))
	}
}

// AllocationFreed appends the deallocation section, with an xxh3 digest of
// the final file contents read through the still-open backing handle, and
// closes the companion file. The companion file itself is not deleted.
func (l *Logger) AllocationFreed(info alloc.Info) {
	l.mu.Lock()
	f := l.open[info.Path]
	delete(l.open, info.Path)
	l.mu.Unlock()
	if f == nil {
		l.report(fmt.Errorf("audit: free of untracked allocation %s", info.Path))
		return
	}

	sum, err := contentDigest(info.File, info.Size)
	if err != nil {
		l.report(fmt.Errorf("audit: digest %s: %w", info.Path, err))
		_, err = fmt.Fprintf(f, "# Deallocation\n```\n%s```\n", debug.Stack())
	} else {
		_, err = fmt.Fprintf(f,
			"# Deallocation\n- Content digest (xxh3): %016x\n```\n%s```\n",
			sum, debug.Stack(),
		)
	}
	if err != nil {
		l.report(fmt.Errorf("audit: log deallocation %s: %w", info.Path, err))
	}

	if err := f.Close(); err != nil {
		l.report(fmt.Errorf("audit: close %s: %w", LogPath(info.Path), err))
	}
}

// Close releases the companion file handles of allocations that were never
// freed. Their files stay behind, final sections unwritten, which is itself
// a record of the leak.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	for path, f := range l.open {
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("audit: close %s: %w", LogPath(path), err)
		}
		delete(l.open, path)
	}
	return first
}

func (l *Logger) report(err error) {
	if l.OnError != nil {
		l.OnError(err)
	}
}

// contentDigest hashes size bytes of f from the start without moving the
// file offset the allocator may rely on.
func contentDigest(f *os.File, size int) (uint64, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, io.NewSectionReader(f, 0, int64(size))); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
