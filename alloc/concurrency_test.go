package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memfile/alloc/backing"
)

func Test_Allocator_ConcurrentAllocations(t *testing.T) {
	a := newTestAllocator(t)

	const goroutines = 16
	bufs := make([][]byte, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buf, err := a.Allocate(LayoutOf(256))
			assert.NoError(t, err)
			for j := range buf {
				buf[j] = byte(n)
			}
			bufs[n] = buf
		}(i)
	}
	wg.Wait()

	state := a.State()
	require.Len(t, state, goroutines, "every goroutine gets its own entry")

	paths := make(map[string]bool, goroutines)
	for n, buf := range bufs {
		require.Len(t, buf, 256)
		for j, b := range buf {
			require.Equal(t, byte(n), b, "goroutine %d byte %d", n, j)
		}
		path, ok := state[backing.AddressOf(buf)]
		require.True(t, ok, "goroutine %d missing from state", n)
		paths[path] = true
	}
	assert.Len(t, paths, goroutines, "backing paths must be distinct")

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, a.Deallocate(bufs[n], LayoutOf(256)))
		}(i)
	}
	wg.Wait()

	assert.Empty(t, a.State())
	st := a.Stats()
	assert.Equal(t, int64(goroutines), st.Allocs)
	assert.Equal(t, int64(goroutines), st.Frees)
}

func Test_Allocator_StateIsASnapshot(t *testing.T) {
	a := newTestAllocator(t)

	buf, err := a.Allocate(LayoutOf(64))
	require.NoError(t, err)

	first := a.State()
	second := a.State()
	assert.Equal(t, first, second, "back-to-back snapshots agree")

	// Later mutations must not leak into an already-taken snapshot.
	other, err := a.Allocate(LayoutOf(64))
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Len(t, a.State(), 2)

	require.NoError(t, a.Deallocate(other, LayoutOf(64)))
	require.NoError(t, a.Deallocate(buf, LayoutOf(64)))
}

// Mixed churn: goroutines walking full lifecycles while others read state.
// The test asserts only the end condition; the value is running it with the
// race detector on.
func Test_Allocator_ConcurrentChurn(t *testing.T) {
	a := newTestAllocator(t)

	const goroutines = 8
	const rounds = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				buf, err := a.Allocate(LayoutOf(128))
				assert.NoError(t, err)
				buf, err = a.Grow(buf, LayoutOf(128), LayoutOf(512))
				assert.NoError(t, err)
				buf, err = a.Shrink(buf, LayoutOf(512), LayoutOf(32))
				assert.NoError(t, err)
				assert.NoError(t, a.Deallocate(buf, LayoutOf(32)))
			}
		}()
	}

	readers := make(chan struct{})
	go func() {
		defer close(readers)
		for i := 0; i < 100; i++ {
			_ = a.State()
			_ = a.Stats()
			_ = a.String()
		}
	}()

	wg.Wait()
	<-readers

	assert.Empty(t, a.State(), "all churned allocations must be gone")
	st := a.Stats()
	assert.Equal(t, int64(goroutines*rounds), st.Allocs)
	assert.Equal(t, int64(goroutines*rounds), st.Frees)
	assert.Equal(t, int64(0), st.LiveBytes)
}
