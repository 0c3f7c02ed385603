package alloc

import (
	"testing"
	"unsafe"
)

// Benchmark_Allocate_FileBacked measures a full file-backed allocate/free
// cycle: file creation, truncate, mapping, unmap and unlink.
func Benchmark_Allocate_FileBacked(b *testing.B) {
	a := New(WithPathProvider(NewCounterPaths(b.TempDir())))
	layout := LayoutOf(4096)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf, err := a.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Deallocate(buf, layout); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_Allocate_Heap measures the same cycle through the heap
// fallback, the baseline the file-backed path trades away.
func Benchmark_Allocate_Heap(b *testing.B) {
	f := HeapFallback{}
	layout := LayoutOf(4096)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := f.Allocate(layout)
		f.Deallocate(buf, layout)
	}
}

// Benchmark_Grow_FileBacked measures a resize: truncate plus a fresh
// mapping, with the registry re-keyed.
func Benchmark_Grow_FileBacked(b *testing.B) {
	a := New(WithPathProvider(NewCounterPaths(b.TempDir())))
	small := LayoutOf(2048)
	large := LayoutOf(4096)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf, err := a.Allocate(small)
		if err != nil {
			b.Fatal(err)
		}
		buf, err = a.Grow(buf, small, large)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Deallocate(buf, large); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_Grow_Heap measures the fallback resize: allocate and copy.
func Benchmark_Grow_Heap(b *testing.B) {
	f := HeapFallback{}
	small := LayoutOf(2048)
	large := LayoutOf(4096)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := f.Allocate(small)
		buf = f.Grow(buf, small, large)
		f.Deallocate(buf, large)
	}
}

// Benchmark_Locate measures the interior-pointer scan with 128 live
// allocations in the table.
func Benchmark_Locate(b *testing.B) {
	a := New(WithPathProvider(NewCounterPaths(b.TempDir())))
	layout := LayoutOf(512)

	var last []byte
	for i := 0; i < 128; i++ {
		buf, err := a.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		last = buf
	}
	p := unsafe.Pointer(&last[100])

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, ok := a.Locate(p); !ok {
			b.Fatal("interior pointer not found")
		}
	}
}

// Benchmark_State measures snapshotting a table of 128 live allocations.
func Benchmark_State(b *testing.B) {
	a := New(WithPathProvider(NewCounterPaths(b.TempDir())))
	layout := LayoutOf(512)

	for i := 0; i < 128; i++ {
		if _, err := a.Allocate(layout); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if got := len(a.State()); got != 128 {
			b.Fatalf("expected 128 entries, got %d", got)
		}
	}
}
