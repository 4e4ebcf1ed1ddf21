// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and tools that have no
// HTTP session.
type MemoryStore struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
	err   error
}

// NewMemoryStore creates a store holding snap.
func NewMemoryStore(snap Snapshot) *MemoryStore {
	return &MemoryStore{snap: cloneSnapshot(snap)}
}

// Load returns the stored snapshot.
func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap), m.err
}

// Save replaces the stored snapshot.
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if snap.User == nil || snap.Token == "" {
		m.snap = Snapshot{}
		return nil
	}
	m.snap = cloneSnapshot(snap)
	return nil
}

// Clear empties the store.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{}
	return nil
}

// Snapshot returns the stored snapshot without going through Load.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap)
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailLoad makes subsequent Load calls return err.
func (m *MemoryStore) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func cloneSnapshot(s Snapshot) Snapshot {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
