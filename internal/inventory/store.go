// Package inventory keeps the field registers (equipment, materials,
// documents, photos, transmittals and daily reports) in process memory.
// Nothing here is persisted; every store starts from its sample records.
package inventory

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	apperrors "gcpanel/internal/errors"
)

// Store is a concurrency-safe register of T keyed by generated id.
type Store[T any] struct {
	mu       sync.RWMutex
	items    map[string]T
	order    []string
	name     string
	getID    func(*T) *string
	validate func(*T) error
}

// NewStore builds an empty store. id must return a pointer to the record's
// id field; validate runs on every create and update and may fill defaults.
func NewStore[T any](name string, id func(*T) *string, validate func(*T) error) *Store[T] {
	return &Store[T]{
		items:    make(map[string]T),
		name:     name,
		getID:    id,
		validate: validate,
	}
}

// Create assigns a fresh id and stores a copy of item.
func (s *Store[T]) Create(item T) (T, error) {
	if s.validate != nil {
		if err := s.validate(&item); err != nil {
			var zero T
			return zero, err
		}
	}
	id := uuid.NewString()
	*s.getID(&item) = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item
	s.order = append(s.order, id)
	return item, nil
}

func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", s.name, id, apperrors.ErrNotFound)
	}
	return item, nil
}

// List returns every record in insertion order.
func (s *Store[T]) List() []T {
	return s.Filter(nil)
}

// Filter returns the records matching keep, in insertion order. A nil keep matches all.
func (s *Store[T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Update applies fields to the record by JSON key. The id cannot change.
// The record is rebuilt from JSON so no pointer is shared with the old value.
func (s *Store[T]) Update(id string, fields map[string]any) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", s.name, id, apperrors.ErrNotFound)
	}

	updated, err := merge(item, fields)
	if err != nil {
		return zero, apperrors.Validation("%s: %v", s.name, err)
	}
	*s.getID(&updated) = id
	if s.validate != nil {
		if err := s.validate(&updated); err != nil {
			return zero, err
		}
	}
	s.items[id] = updated
	return updated, nil
}

// Modify runs fn on a deep copy of the record and stores the result when fn
// and validation succeed. fn may return an error to reject the change.
func (s *Store[T]) Modify(id string, fn func(*T) error) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", s.name, id, apperrors.ErrNotFound)
	}

	updated, err := merge(item, nil)
	if err != nil {
		return zero, fmt.Errorf("copy %s %s: %w", s.name, id, err)
	}
	if err := fn(&updated); err != nil {
		return zero, err
	}
	*s.getID(&updated) = id
	if s.validate != nil {
		if err := s.validate(&updated); err != nil {
			return zero, err
		}
	}
	s.items[id] = updated
	return updated, nil
}

func merge[T any](item T, fields map[string]any) (T, error) {
	var out T
	current, err := json.Marshal(item)
	if err != nil {
		return out, err
	}
	merged := map[string]any{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return out, err
	}
	// patch keys take the record's spelling, so "Name" replaces "name"
	// instead of sitting beside it
	canonical := make(map[string]string, len(merged))
	for k := range merged {
		canonical[strings.ToLower(k)] = k
	}
	for k, v := range fields {
		if known, ok := canonical[strings.ToLower(k)]; ok {
			k = known
		}
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%s %s: %w", s.name, id, apperrors.ErrNotFound)
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[T]) mustSeed(items ...T) {
	for _, item := range items {
		if _, err := s.Create(item); err != nil {
			panic(fmt.Sprintf("inventory: bad %s sample: %v", s.name, err))
		}
	}
}
