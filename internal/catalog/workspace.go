// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"context"
	"time"

	"github.com/olegiv/quizzer/internal/cache"
)

// Workspace persists the mirrors of one browser session between requests.
type Workspace struct {
	cache cache.Cacher
	ttl   time.Duration
	id    string
}

// NewWorkspace opens workspace id on c. Mirrors expire after ttl.
func NewWorkspace(c cache.Cacher, ttl time.Duration, id string) *Workspace {
	return &Workspace{cache: c, ttl: ttl, id: id}
}

// ID returns the workspace id.
func (w *Workspace) ID() string {
	return w.id
}

func (w *Workspace) prefix() string {
	return "mirror:" + w.id + ":"
}

func (w *Workspace) key(kind string) string {
	return w.prefix() + kind
}

// Invalidate drops the stored mirrors of kinds so their next view refetches.
func (w *Workspace) Invalidate(ctx context.Context, kinds ...string) error {
	for _, kind := range kinds {
		if err := w.cache.Delete(ctx, w.key(kind)); err != nil {
			return err
		}
	}
	return nil
}

// Drop removes every mirror of the workspace.
func (w *Workspace) Drop(ctx context.Context) error {
	return w.cache.DeleteByPrefix(ctx, w.prefix())
}

// OpenMirror returns the stored mirror of kind. A missing or expired entry
// yields an unloaded mirror, which the caller fills with a fetch.
func OpenMirror[T Entity](ctx context.Context, w *Workspace, kind string) *Mirror[T] {
	m := NewMirror[T]()
	if w == nil {
		return m
	}
	if items, ok := cache.NewTypedCache[[]T](w.cache, w.ttl).Get(ctx, w.key(kind)); ok {
		m.Replace(*items)
	}
	return m
}

// SaveMirror stores a loaded mirror under kind. Unloaded mirrors are skipped.
func SaveMirror[T Entity](ctx context.Context, w *Workspace, kind string, m *Mirror[T]) error {
	if w == nil || !m.Loaded() {
		return nil
	}
	items := m.Items()
	return cache.NewTypedCache[[]T](w.cache, w.ttl).Set(ctx, w.key(kind), &items)
}
