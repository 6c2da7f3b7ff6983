package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential_Deterministic(t *testing.T) {
	alloc := NewSequential()

	first := alloc.NewID()
	second := alloc.NewID()

	assert.Equal(t, "00000000-0000-4000-8000-000000000001", first.String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", second.String())
}

func TestSequential_ConcurrentUnique(t *testing.T) {
	alloc := NewSequential()
	const goroutines = 50

	ids := make(chan string, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- alloc.NewID().String()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, goroutines)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRandom_ProducesDistinctIDs(t *testing.T) {
	var alloc Random
	assert.NotEqual(t, alloc.NewID(), alloc.NewID())
}
