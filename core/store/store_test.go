package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SequentialIDs(t *testing.T) {
	s := New()
	const n = 25

	var prev uint64
	for i := 0; i < n; i++ {
		id := s.Insert(fmt.Sprintf("m%d", i), "alice")
		if i == 0 {
			assert.Equal(t, uint64(1), id)
		}
		assert.Greater(t, id, prev)
		prev = id
	}

	list := s.List()
	require.Len(t, list, n)
	for i, m := range list {
		assert.Equal(t, uint64(i+1), m.ID)
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		assert.Equal(t, "alice", m.Username)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	id := s.Insert("hi", "bob")

	m, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, Message{ID: id, Content: "hi", Username: "bob"}, m)

	m.Content = "changed"
	again, _ := s.Get(id)
	assert.Equal(t, "hi", again.Content)

	_, ok = s.Get(id + 1)
	assert.False(t, ok)
}

func TestStore_ListIsSnapshot(t *testing.T) {
	s := New()
	s.Insert("a", "u")
	list := s.List()
	s.Insert("b", "u")

	assert.Len(t, list, 1)
	assert.Equal(t, 2, s.Len())
}

func TestStore_DeleteMissingLeavesMapUnchanged(t *testing.T) {
	s := New()
	s.Insert("a", "u")
	s.Insert("b", "u")
	before := s.List()

	assert.ErrorIs(t, s.Delete(99), ErrNotFound)
	assert.Equal(t, before, s.List())
}

func TestStore_UpdateDeleted(t *testing.T) {
	s := New()
	id := s.Insert("a", "u")
	require.NoError(t, s.Delete(id))

	assert.ErrorIs(t, s.Update(id, "b"), ErrNotFound)
	assert.ErrorIs(t, s.Delete(id), ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestStore_Update(t *testing.T) {
	s := New()
	id := s.Insert("a", "u")
	require.NoError(t, s.Update(id, "b"))

	m, _ := s.Get(id)
	assert.Equal(t, "b", m.Content)
	assert.Equal(t, "u", m.Username)
}

func TestStore_IDsNeverReused(t *testing.T) {
	s := New()
	first := s.Insert("a", "u")
	require.NoError(t, s.Delete(first))
	second := s.Insert("b", "u")

	assert.NotEqual(t, first, second)
	assert.Equal(t, first+1, second)
}

func TestStore_Upsert(t *testing.T) {
	s := New()
	id := s.Insert("a", "alice")

	m, created := s.Upsert(id, "edited", "bob")
	assert.False(t, created)
	assert.Equal(t, Message{ID: id, Content: "edited", Username: "alice"}, m)

	m, created = s.Upsert(42, "new", "bob")
	assert.True(t, created)
	assert.Equal(t, id+1, m.ID)
	assert.Equal(t, "bob", m.Username)

	got, ok := s.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, m, got)
	_, ok = s.Get(42)
	assert.False(t, ok)
}

func TestStore_ConcurrentInserts(t *testing.T) {
	s := New()
	const k = 200

	ids := make(chan uint64, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids <- s.Insert(fmt.Sprintf("m%d", i), "u")
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, k)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, k)
	assert.Len(t, s.List(), k)
}

func TestStore_ConcurrentMixed(t *testing.T) {
	s := New()
	for i := 0; i < 50; i++ {
		s.Insert("seed", "u")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.List()
			}
		}()
		go func(i int) {
			defer wg.Done()
			for j := 1; j <= 50; j++ {
				_ = s.Update(uint64(j), fmt.Sprintf("w%d", i))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Insert("more", "u")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50+8*10, s.Len())
	for _, m := range s.List() {
		if m.ID <= 50 {
			assert.NotEqual(t, "seed", m.Content)
		}
	}
}
