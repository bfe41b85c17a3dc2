package datastore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("data not found")
	ErrEmptyKey = errors.New("key must not be empty")
)

// Item is one stored value
type Item struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	// Timestamp is the client-supplied time of the value, or the store time
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an in-memory key/value store safe for concurrent use
type Store struct {
	mu    sync.RWMutex
	items map[string]Item
	now   func() time.Time
}

// New creates an empty store
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store using now for timestamps
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		items: make(map[string]Item),
		now:   now,
	}
}

// Put stores value under key, replacing any previous value. A zero
// timestamp is replaced by the store time.
func (s *Store) Put(key string, value any, timestamp time.Time) (Item, error) {
	if key == "" {
		return Item{}, ErrEmptyKey
	}

	now := s.now()
	if timestamp.IsZero() {
		timestamp = now
	}
	item := Item{Key: key, Value: value, Timestamp: timestamp, CreatedAt: now}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()

	return item, nil
}

// Get returns the item stored under key
func (s *Store) Get(key string) (Item, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return Item{}, fmt.Errorf("%w for key: %s", ErrNotFound, key)
	}
	return item, nil
}

// List returns every item ordered by key
func (s *Store) List() []Item {
	s.mu.RLock()
	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

// Delete removes and returns the item stored under key
func (s *Store) Delete(key string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return Item{}, fmt.Errorf("%w for key: %s", ErrNotFound, key)
	}
	delete(s.items, key)
	return item, nil
}

// Len returns the number of stored items
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
