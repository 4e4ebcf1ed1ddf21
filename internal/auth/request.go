// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import "context"

type contextKey struct{}

// WithContext attaches an auth Context to ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the auth Context attached to ctx, or nil.
func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(contextKey{}).(*Context)
	return ac
}
