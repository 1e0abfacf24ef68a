package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertWithinBudget(t *testing.T) {
	c := NewCache(3)
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))
	require.NoError(t, c.Insert("C", "valueC", 1))

	assert.Equal(t, 3, c.GetWeight())
	assert.Equal(t, 3, c.GetBudget())
	assert.Equal(t, 3, c.Len())

	v, ok := c.Retrieve("B")
	assert.True(t, ok)
	assert.Equal(t, "valueB", v)
}

func TestCache_DuplicateRejected(t *testing.T) {
	c := NewCache(2)
	require.NoError(t, c.Insert("dupe", "valueDupe", 1))
	assert.Equal(t, ErrKeyExists, c.Insert("dupe", "other", 1))

	v, _ := c.Retrieve("dupe")
	assert.Equal(t, "valueDupe", v)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.SetVerbose(true)
	require.NoError(t, c.Insert("evicted", "valueEvicted", 1))
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))

	_, found := c.Retrieve("evicted")
	assert.False(t, found)

	_, foundA := c.Retrieve("A")
	_, foundB := c.Retrieve("B")
	assert.True(t, foundA)
	assert.True(t, foundB)
	assert.Equal(t, 2, c.GetWeight())
}

func TestCache_EvictsLeastRecentlyRetrieved(t *testing.T) {
	c := NewCache(2)
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))

	// Accessing "A" makes "B" the least recently used item
	c.Retrieve("A")
	require.NoError(t, c.Insert("C", "valueC", 1))

	_, foundB := c.Retrieve("B")
	assert.False(t, foundB)

	_, foundA := c.Retrieve("A")
	assert.True(t, foundA)

	// "C" is now the least recently used
	require.NoError(t, c.Insert("D", "valueD", 1))
	_, foundC := c.Retrieve("C")
	assert.False(t, foundC)
}

func TestCache_OverweightItem(t *testing.T) {
	c := NewCache(2)
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("heavy", "valueHeavy", 3))

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.GetWeight())

	require.NoError(t, c.Insert("B", "valueB", 1))
	_, found := c.Retrieve("B")
	assert.True(t, found)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(1)
	require.NoError(t, c.Insert("cleared", "valueCleared", 1))
	c.Clear()

	_, found := c.Retrieve("cleared")
	assert.False(t, found)
	assert.Equal(t, 0, c.GetWeight())
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d-%d", worker, j%16)
				_ = c.Insert(key, j, 1)
				c.Retrieve(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.GetWeight(), c.GetBudget())
	assert.Equal(t, c.Len(), c.GetWeight())
}
