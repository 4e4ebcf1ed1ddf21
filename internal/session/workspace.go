// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

// WorkspaceID returns the catalog workspace id of the current session,
// allocating one on first use.
func WorkspaceID(ctx context.Context, sm *scs.SessionManager) string {
	if id := sm.GetString(ctx, KeyWorkspaceID); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, KeyWorkspaceID, id)
	return id
}

// PeekWorkspaceID returns the workspace id without allocating one.
func PeekWorkspaceID(ctx context.Context, sm *scs.SessionManager) string {
	return sm.GetString(ctx, KeyWorkspaceID)
}

// DropWorkspace forgets the workspace id so the next use starts fresh.
func DropWorkspace(ctx context.Context, sm *scs.SessionManager) {
	sm.Remove(ctx, KeyWorkspaceID)
}
