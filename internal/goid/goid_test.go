package goid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID_StableWithinGoroutine(t *testing.T) {
	first := ID()
	second := ID()
	require.Equal(t, first, second, "id must be stable for the same goroutine")
	require.NotZero(t, first)
}

func TestID_DistinctAcrossGoroutines(t *testing.T) {
	const n = 32

	var mu sync.Mutex
	seen := make(map[uint64]int, n+1)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ID()
			mu.Lock()
			seen[id]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n, "every goroutine must observe its own id")
	for id, count := range seen {
		require.Equal(t, 1, count, "id %d reported by more than one goroutine", id)
	}
}
