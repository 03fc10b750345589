package listmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedItem(id int) *ListItem {
	item := newListItem(nil)
	item.ID = id
	return item
}

func TestIndexedCache_SetAndGet_KeyMatchesID(t *testing.T) {
	// Arrange
	cache := NewItemCache()
	ids := []int{42, 7, 19, 3}

	// Act
	for _, id := range ids {
		require.NoError(t, cache.Set(id, cachedItem(id)))
	}

	// Assert
	for _, id := range ids {
		item, ok := cache.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, item.ID)
	}
	assert.Equal(t, 4, cache.Size())
}

func TestIndexedCache_Set_RejectsInvalidEntities(t *testing.T) {
	tests := []struct {
		name string
		key  int
		item *ListItem
	}{
		{name: "nil_item", key: 1, item: nil},
		{name: "zero_id", key: 0, item: cachedItem(0)},
		{name: "negative_id", key: -3, item: cachedItem(-3)},
		{name: "key_mismatch", key: 5, item: cachedItem(6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewItemCache()

			err := cache.Set(tt.key, tt.item)

			assert.ErrorIs(t, err, ErrInvalidEntity)
			assert.Equal(t, 0, cache.Size())
		})
	}
}

func TestIndexedCache_Set_OverwriteDifferentInstanceProceeds(t *testing.T) {
	cache := NewItemCache()
	first := cachedItem(8)
	second := cachedItem(8)
	require.NoError(t, cache.Set(8, first))

	err := cache.Set(8, second)

	require.NoError(t, err)
	got, _ := cache.Get(8)
	assert.Same(t, second, got)
}

func TestIndexedCache_FirstLast_UseNumericOrder(t *testing.T) {
	// Arrange
	cache := NewItemCache()
	for _, id := range []int{10, 2, 33, 9} {
		require.NoError(t, cache.Set(id, cachedItem(id)))
	}

	// Act
	first, okFirst := cache.First()
	last, okLast := cache.Last()

	// Assert
	require.True(t, okFirst)
	require.True(t, okLast)
	assert.Equal(t, 2, first.ID)
	assert.Equal(t, 33, last.ID)
	assert.Equal(t, []int{2, 9, 10, 33}, cache.Keys())

	third, ok := cache.NthEntity(2)
	require.True(t, ok)
	assert.Equal(t, 10, third.ID)

	_, ok = cache.NthEntity(4)
	assert.False(t, ok)
}

func TestIndexedCache_DeleteAndClear(t *testing.T) {
	cache := NewItemCache()
	for _, id := range []int{1, 2, 3} {
		require.NoError(t, cache.Set(id, cachedItem(id)))
	}

	assert.True(t, cache.Delete(2))
	assert.False(t, cache.Delete(2))
	assert.False(t, cache.Has(2))
	assert.Equal(t, 2, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
	_, ok := cache.First()
	assert.False(t, ok)
}

func TestIndexedCache_Range_StopsEarly(t *testing.T) {
	cache := NewItemCache()
	for _, id := range []int{5, 1, 3} {
		require.NoError(t, cache.Set(id, cachedItem(id)))
	}

	var visited []int
	cache.Range(func(id int, item *ListItem) bool {
		visited = append(visited, id)
		return len(visited) < 2
	})

	assert.Equal(t, []int{1, 3}, visited)
}
