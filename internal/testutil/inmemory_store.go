package testutil

import (
	"context"
	"sync"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
)

// InMemoryStore provides a generic thread-safe in-memory store for testing
type InMemoryStore[T any] struct {
	sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create adds an item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithHint("An item with this id already exists").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

// Get retrieves an item from the store
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.RLock()
	defer s.RUnlock()

	item, exists := s.items[id]
	if !exists {
		var zero T
		return zero, ierr.NewError("item not found").
			WithHint("No item with this id exists").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

// Update replaces an existing item in the store
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithHint("No item with this id exists").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// List returns all items matching the filter
func (s *InMemoryStore[T]) List(ctx context.Context, filterFn func(ctx context.Context, item T) bool) []T {
	s.RLock()
	defer s.RUnlock()

	result := make([]T, 0)
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, item)
		}
	}
	return result
}

// Count returns the number of items in the store
func (s *InMemoryStore[T]) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.items)
}
