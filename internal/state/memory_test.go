package state

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStore_GetAbsentIsNotError(t *testing.T) {
	s := NewMemoryStore()

	data, ok, err := s.Get(context.Background(), NamespaceProjects, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NamespaceProjects, "p1", record{Name: "a", Count: 1}))
	require.NoError(t, s.Set(ctx, NamespaceProjects, "p1", record{Name: "b", Count: 2}))

	data, ok, err := s.Get(ctx, NamespaceProjects, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	var got record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "b", got.Name)
	assert.Equal(t, 2, got.Count)
}

func TestMemoryStore_DeleteThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NamespaceRenderJobs, "j1", record{Name: "x"}))
	require.NoError(t, s.Delete(ctx, NamespaceRenderJobs, "j1"))

	_, ok, err := s.Get(ctx, NamespaceRenderJobs, "j1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ListReturnsNamespaceOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NamespaceProjects, "p1", record{Name: "a"}))
	require.NoError(t, s.Set(ctx, NamespaceProjects, "p2", record{Name: "b"}))
	require.NoError(t, s.Set(ctx, NamespaceAnalytics, "p1", record{Name: "c"}))

	vals, err := s.List(ctx, NamespaceProjects)
	require.NoError(t, err)
	assert.Len(t, vals, 2)

	names := map[string]bool{}
	for _, v := range vals {
		var r record
		require.NoError(t, json.Unmarshal(v, &r))
		names[r.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestMemoryStore_UpdateCreatesWhenAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Update(ctx, NamespaceProjects, "p1", func(data []byte, ok bool) (any, error) {
		assert.False(t, ok)
		return record{Name: "created"}, nil
	})
	require.NoError(t, err)

	data, ok, err := s.Get(ctx, NamespaceProjects, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	var got record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "created", got.Name)
}

func TestMemoryStore_UpdateNilLeavesRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NamespaceProjects, "p1", record{Name: "keep", Count: 7}))
	err := s.Update(ctx, NamespaceProjects, "p1", func(data []byte, ok bool) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	data, _, err := s.Get(ctx, NamespaceProjects, "p1")
	require.NoError(t, err)
	var got record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 7, got.Count)
}

func TestMemoryStore_UpdateSerializesWriters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, NamespaceProjects, "p1", record{Count: 0}))

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, NamespaceProjects, "p1", func(data []byte, ok bool) (any, error) {
				var r record
				_ = json.Unmarshal(data, &r)
				r.Count++
				return r, nil
			})
		}()
	}
	wg.Wait()

	data, _, err := s.Get(ctx, NamespaceProjects, "p1")
	require.NoError(t, err)
	var got record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, writers, got.Count)
}
