// Package selection tracks the set of items targeted by batch operations.
// Membership is keyed by composite identity (key, type) and is independent
// of whatever filtered or searched view is currently displayed.
package selection

import (
	"sort"
	"sync"

	"github.com/azamatb/objbrowse/internal/catalog"
)

// Set is a selection of stored items.
type Set struct {
	mu    sync.Mutex
	items map[catalog.Ident]catalog.StoredItem
}

// NewSet returns an empty selection.
func NewSet() *Set {
	return &Set{items: make(map[catalog.Ident]catalog.StoredItem)}
}

// Toggle adds the item if absent and removes it if present.
func (s *Set) Toggle(item catalog.StoredItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := item.Ident()
	if _, ok := s.items[id]; ok {
		delete(s.items, id)
		return
	}
	s.items[id] = item
}

// IsSelected reports membership by composite identity.
func (s *Set) IsSelected(item catalog.StoredItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[item.Ident()]
	return ok
}

// SelectAll replaces the selection with exactly the items of the current
// view. When the selection already equals the view it clears instead, so
// select-all toggles between "all of current view" and "none".
func (s *Set) SelectAll(view []catalog.StoredItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.equalsLocked(view) {
		s.items = make(map[catalog.Ident]catalog.StoredItem)
		return
	}
	s.items = make(map[catalog.Ident]catalog.StoredItem, len(view))
	for _, item := range view {
		s.items[item.Ident()] = item
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[catalog.Ident]catalog.StoredItem)
}

// Len returns the number of selected items.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns the selected items ordered by key then type.
func (s *Set) Items() []catalog.StoredItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]catalog.StoredItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func (s *Set) equalsLocked(view []catalog.StoredItem) bool {
	if len(s.items) != len(view) {
		return false
	}
	for _, item := range view {
		if _, ok := s.items[item.Ident()]; !ok {
			return false
		}
	}
	return true
}
