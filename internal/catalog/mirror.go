// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog keeps local mirrors of the quiz catalog (fields, topics,
// questions) in step with mutations made through the quiz API.
package catalog

import (
	"slices"
	"sync"
)

// Entity is a catalog item with a server-assigned id.
type Entity interface {
	EntityID() int64
	DisplayName() string
}

// Mirror is the local copy of one catalog collection. It starts empty,
// is filled by a fetch and then reconciled after each successful mutation.
type Mirror[T Entity] struct {
	mu     sync.Mutex
	items  []T
	loaded bool
}

// NewMirror returns an empty, unloaded mirror.
func NewMirror[T Entity]() *Mirror[T] {
	return &Mirror[T]{}
}

// Replace installs a freshly fetched collection.
func (m *Mirror[T]) Replace(items []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.Clone(items)
	if m.items == nil {
		m.items = []T{}
	}
	m.loaded = true
}

// Loaded reports whether the mirror holds a fetched collection.
func (m *Mirror[T]) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Items returns a copy of the mirrored items in order.
func (m *Mirror[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Len returns the number of mirrored items.
func (m *Mirror[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Find returns the item with the given id.
func (m *Mirror[T]) Find(id int64) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return m.items[i], true
	}
	var zero T
	return zero, false
}

// Insert appends item, or replaces the item with the same id so the
// mirror never holds duplicates.
func (m *Mirror[T]) Insert(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(item.EntityID()); i >= 0 {
		m.items[i] = item
		return
	}
	m.items = append(m.items, item)
}

// Update replaces the item with the same id and leaves the rest untouched.
// It reports whether an item was replaced.
func (m *Mirror[T]) Update(item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(item.EntityID()); i >= 0 {
		m.items[i] = item
		return true
	}
	return false
}

// Remove drops the item with the given id. It reports whether one was removed.
func (m *Mirror[T]) Remove(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.items = slices.Delete(m.items, i, i+1)
	return true
}

func (m *Mirror[T]) index(id int64) int {
	return slices.IndexFunc(m.items, func(it T) bool { return it.EntityID() == id })
}
