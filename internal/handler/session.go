package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/catalog"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/session"
)

// sessionDeps is what every console handler needs to render pages and
// manage the browser session.
type sessionDeps struct {
	renderer  *render.Renderer
	sm        *scs.SessionManager
	cache     cache.Cacher
	mirrorTTL time.Duration
}

// msgSessionExpired is shown when the quiz API rejects the session token.
const msgSessionExpired = "Your session has expired. Please log in again."

// openWorkspace returns the mirror workspace of the current browser session.
func (d sessionDeps) openWorkspace(r *http.Request) *catalog.Workspace {
	return catalog.NewWorkspace(d.cache, d.mirrorTTL, session.WorkspaceID(r.Context(), d.sm))
}

// dropWorkspace discards the session's mirrors so the next view refetches.
func (d sessionDeps) dropWorkspace(r *http.Request) {
	id := session.PeekWorkspaceID(r.Context(), d.sm)
	if id == "" {
		return
	}
	if err := catalog.NewWorkspace(d.cache, 0, id).Drop(r.Context()); err != nil {
		slog.Warn("failed to drop mirror workspace", "error", err)
	}
	session.DropWorkspace(r.Context(), d.sm)
}

// expireSession logs out after the API rejected the token and sends the
// browser to the login page.
func (d sessionDeps) expireSession(w http.ResponseWriter, r *http.Request) {
	if ac := middleware.GetAuth(r); ac != nil {
		if err := ac.Logout(r.Context()); err != nil {
			slog.Error("failed to clear expired session", "error", err)
		}
	}
	d.dropWorkspace(r)
	slog.Info("session token rejected by quiz service", "path", r.URL.Path)
	flashError(w, r, d.renderer, redirectLogin, msgSessionExpired)
}
