// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ValidationError carries per-field messages for a rejected form.
// It is returned before any request is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Messages returns the field messages, never nil.
func (e *ValidationError) Messages() map[string]string {
	if e == nil || e.Fields == nil {
		return map[string]string{}
	}
	return e.Fields
}

// foldName normalizes a name for case-insensitive comparison.
func foldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NameTaken reports whether another item already uses name, compared
// case-insensitively with Unicode case folding. The item with id selfID is
// ignored so an edit can keep its own name. Only the given items are
// checked; the server may still hold others.
func NameTaken[T Entity](items []T, name string, selfID int64) bool {
	want := foldName(name)
	for _, it := range items {
		if it.EntityID() != selfID && foldName(it.DisplayName()) == want {
			return true
		}
	}
	return false
}
