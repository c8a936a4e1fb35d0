package ratelimit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetLimit(t *testing.T) {
	b := NewBudget(2)
	assert.True(t, b.Allow())
	require.NoError(t, b.Use("gemini"))
	require.NoError(t, b.Use("gemini"))
	assert.Equal(t, 0, b.Remaining())
	assert.False(t, b.Allow())

	err := b.Use("gemini")
	assert.ErrorIs(t, err, ErrBudgetExhausted)

	stats := b.GetStats()
	assert.Equal(t, 2, stats["total_used"])
	assert.Equal(t, 1, stats["rejected"])
	assert.Equal(t, map[string]int{"gemini": 2}, stats["per_service"])
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 50; i++ {
		require.NoError(t, b.Use("gemini"))
	}
	assert.Equal(t, -1, b.Remaining())
	assert.True(t, b.Allow())
}

func TestBudgetConcurrentUse(t *testing.T) {
	b := NewBudget(10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Use("gemini") == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, granted)
}
