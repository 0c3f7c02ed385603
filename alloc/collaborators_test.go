package alloc

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	kind string
	info Info
	old  Info
}

// recordingObserver collects lifecycle events in order.
type recordingObserver struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingObserver) record(kind string, info, old Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind, info, old})
}

func (r *recordingObserver) AllocationCreated(info Info)      { r.record("created", info, Info{}) }
func (r *recordingObserver) AllocationResized(info, old Info) { r.record("resized", info, old) }
func (r *recordingObserver) AllocationFreed(info Info)        { r.record("freed", info, Info{}) }

func (r *recordingObserver) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func Test_Allocator_DeclinedAllocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "allocs")
	a := New(
		WithConfirmer(ConfirmerFunc(func(Layout) bool { return false })),
		WithPathProvider(NewCounterPaths(dir)),
	)

	buf, err := a.Allocate(LayoutOf(64))
	require.ErrorIs(t, err, ErrDeclined)
	assert.Nil(t, buf)
	assert.Empty(t, a.State())

	// Declining happens before path selection, so not even the directory
	// comes into existence.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_Allocator_ConfirmerSeesLayout(t *testing.T) {
	var seen []Layout
	a := newTestAllocator(t, WithConfirmer(ConfirmerFunc(func(l Layout) bool {
		seen = append(seen, l)
		return l.Size <= 1024
	})))

	buf, err := a.Allocate(LayoutOf(512))
	require.NoError(t, err)
	_, err = a.Allocate(LayoutOf(4096))
	require.ErrorIs(t, err, ErrDeclined)

	require.Len(t, seen, 2)
	assert.Equal(t, 512, seen[0].Size)
	assert.Equal(t, 4096, seen[1].Size)

	require.NoError(t, a.Deallocate(buf, LayoutOf(512)))
}

type noPaths struct{}

func (noPaths) NextPath(Layout) (string, bool) { return "", false }

func Test_Allocator_ExhaustedPathProvider(t *testing.T) {
	a := New(WithPathProvider(noPaths{}))

	buf, err := a.Allocate(LayoutOf(64))
	require.ErrorIs(t, err, ErrNoPath)
	assert.Nil(t, buf)
	assert.Empty(t, a.State())
}

func Test_Allocator_ObserverLifecycle(t *testing.T) {
	rec := &recordingObserver{}
	a := newTestAllocator(t, WithObserver(rec))

	buf, err := a.Allocate(LayoutOf(64))
	require.NoError(t, err)
	buf, err = a.Grow(buf, LayoutOf(64), LayoutOf(256))
	require.NoError(t, err)
	buf, err = a.Shrink(buf, LayoutOf(256), LayoutOf(32))
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(buf, LayoutOf(32)))

	events := rec.all()
	require.Len(t, events, 4)

	created := events[0]
	assert.Equal(t, "created", created.kind)
	assert.Equal(t, 64, created.info.Size)
	assert.NotZero(t, created.info.Addr)
	assert.NotEmpty(t, created.info.Path)
	assert.NotNil(t, created.info.File)

	grown := events[1]
	assert.Equal(t, "resized", grown.kind)
	assert.Equal(t, 256, grown.info.Size)
	assert.Equal(t, 64, grown.old.Size)
	assert.Equal(t, created.info.Addr, grown.old.Addr, "old side of the resize is the pre-resize allocation")
	assert.Equal(t, created.info.Path, grown.info.Path, "resize keeps the backing path")

	shrunk := events[2]
	assert.Equal(t, "resized", shrunk.kind)
	assert.Equal(t, 32, shrunk.info.Size)
	assert.Equal(t, 256, shrunk.old.Size)

	freed := events[3]
	assert.Equal(t, "freed", freed.kind)
	assert.Equal(t, 32, freed.info.Size)
	assert.Equal(t, created.info.Path, freed.info.Path)
}

func Test_Allocator_ObserverFallbackSilence(t *testing.T) {
	rec := &recordingObserver{}
	a := newTestAllocator(t, WithObserver(rec))

	// Fallback-served operations produce no events.
	buf, err := a.Allocate(Layout{Size: 0, Align: 8})
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(buf, Layout{Size: 0, Align: 8}))

	a.EnableInGoroutine(false)
	buf, err = a.Allocate(LayoutOf(64))
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(buf, LayoutOf(64)))
	a.EnableInGoroutine(true)

	assert.Empty(t, rec.all(), "the observer hears about file-backed allocations only")
}

// The freed notification fires while the backing file is still open and on
// disk, so an observer can capture final contents.
func Test_Allocator_ObserverReadsFileDuringFree(t *testing.T) {
	var lastWords []byte
	obs := hookObserver{
		freed: func(info Info) {
			got := make([]byte, info.Size)
			_, err := info.File.ReadAt(got, 0)
			assert.NoError(t, err, "backing file must be readable at free time")
			lastWords = got
		},
	}
	a := newTestAllocator(t, WithObserver(obs))

	buf, err := a.Allocate(LayoutOf(32))
	require.NoError(t, err)
	copy(buf, "carved into the backing file")
	require.NoError(t, a.Flush(buf))

	require.NoError(t, a.Deallocate(buf, LayoutOf(32)))
	require.Len(t, lastWords, 32)
	assert.Equal(t, "carved into the backing file", string(lastWords[:28]))
}

func Test_MultiObserver_FansOut(t *testing.T) {
	first := &recordingObserver{}
	second := &recordingObserver{}
	a := newTestAllocator(t, WithObserver(MultiObserver{first, second}))

	buf, err := a.Allocate(LayoutOf(64))
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(buf, LayoutOf(64)))

	for i, rec := range []*recordingObserver{first, second} {
		events := rec.all()
		require.Len(t, events, 2, "observer %d", i)
		assert.Equal(t, "created", events[0].kind)
		assert.Equal(t, "freed", events[1].kind)
	}
}
