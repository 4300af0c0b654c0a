// Package store holds the in-memory message collection shared by all
// workers.
package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned when no message has the requested id
var ErrNotFound = errors.New("message not found")

// Message is one stored message
type Message struct {
	ID       uint64 `json:"id"`
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Store is a concurrency-safe id -> Message map.
//
// Writers hold the exclusive lock for the whole mutation, readers share the
// read lock. Ids come from an atomic counter that is independent of the
// lock: the first id is 1, every Insert consumes one id and ids are never
// reused.
type Store struct {
	mu       sync.RWMutex
	messages map[uint64]Message
	nextID   atomic.Uint64
}

// New creates an empty store
func New() *Store {
	s := &Store{messages: make(map[uint64]Message)}
	s.nextID.Store(1)
	return s
}

func (s *Store) allocateID() uint64 {
	return s.nextID.Add(1) - 1
}

// List returns a copy of every message ordered by id
func (s *Store) List() []Message {
	s.mu.RLock()
	out := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of the message with id
func (s *Store) Get(id uint64) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Len returns the number of live messages
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Insert stores a new message and returns its id
func (s *Store) Insert(content, username string) uint64 {
	id := s.allocateID()

	s.mu.Lock()
	s.messages[id] = Message{ID: id, Content: content, Username: username}
	s.mu.Unlock()

	return id
}

// Update replaces the content of an existing message
func (s *Store) Update(id uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.Content = content
	s.messages[id] = m
	return nil
}

// Upsert updates the content of message id when it exists. Otherwise it
// inserts a new message owned by username under a freshly allocated id.
// Both paths run under one exclusive lock. created reports which one ran.
func (s *Store) Upsert(id uint64, content, username string) (m Message, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.messages[id]; ok {
		m.Content = content
		s.messages[id] = m
		return m, false
	}

	m = Message{ID: s.allocateID(), Content: content, Username: username}
	s.messages[m.ID] = m
	return m, true
}

// Delete removes a message
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	return nil
}
