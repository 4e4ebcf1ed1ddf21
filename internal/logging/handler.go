// Package logging provides a slog handler that mirrors warnings and errors
// into the local event log, so the dashboard can show recent problems.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/store"
)

// EventLogHandler wraps another slog.Handler and also records entries at or
// above its level in the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler creates a handler that records WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a handler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	fields := make(map[string]string, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.String()
		return true
	})

	category := fields["category"]
	delete(fields, "category")
	if category == "" {
		category = inferCategory(r.Message)
	}

	var userID sql.NullInt64
	if id, err := strconv.ParseInt(fields["user_id"], 10, 64); err == nil {
		userID = sql.NullInt64{Int64: id, Valid: true}
		delete(fields, "user_id")
	}
	var ip string
	if v, ok := fields["ip"]; ok {
		ip = v
		delete(fields, "ip")
	}

	metadata := "{}"
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			metadata = string(b)
		}
	}

	// The request context may already be cancelled; the record must still land.
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		IpAddress: ip,
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "logout") || strings.Contains(msg, "session"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "field") || strings.Contains(msg, "topic") ||
		strings.Contains(msg, "question") || strings.Contains(msg, "choice"):
		return model.EventCategoryCatalog
	case strings.Contains(msg, "api") || strings.Contains(msg, "quiz service"):
		return model.EventCategoryAPI
	default:
		return model.EventCategorySystem
	}
}
