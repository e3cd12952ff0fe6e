package registry

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered_BoundsHeldResultsAndKeepsOrder(t *testing.T) {
	// Given: work that finishes out of order
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}
	var (
		mu      sync.Mutex
		held    int
		maxHeld int
	)
	work := func(i int) int {
		mu.Lock()
		held++
		if held > maxHeld {
			maxHeld = held
		}
		mu.Unlock()
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
		return i * 2
	}

	// When: consuming with a window of 3
	var got []int
	err := ordered(context.Background(), 3, items, work, func(i, out int) {
		assert.Equal(t, i*2, out)
		got = append(got, i)
		mu.Lock()
		held--
		mu.Unlock()
	})

	// Then: every item is consumed in order and at most 3 results existed at once
	require.NoError(t, err)
	assert.Equal(t, items, got)
	assert.LessOrEqual(t, maxHeld, 3)
	assert.Positive(t, maxHeld)
}

func TestOrdered_Empty(t *testing.T) {
	called := false
	err := ordered(context.Background(), 2, nil, func(int) int { return 0 }, func(int, int) { called = true })

	require.NoError(t, err)
	assert.False(t, called)
}

func TestOrdered_Cancelled(t *testing.T) {
	// Given: a context cancelled by the first consume
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	items := make([]int, 50)

	// When: running the queue
	consumed := 0
	err := ordered(ctx, 2, items, func(i int) int {
		time.Sleep(time.Millisecond)
		return i
	}, func(int, int) {
		consumed++
		cancel()
	})

	// Then: the queue stops early with the cancellation
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, consumed, len(items))
}
