package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "logging.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func recent(t *testing.T, db *sql.DB) []store.Event {
	t.Helper()
	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{"error", func(l *slog.Logger) { l.Error("database connection failed", "host", "localhost") }, model.EventLevelError},
		{"warn", func(l *slog.Logger) { l.Warn("slow response", "duration_ms", 5000) }, model.EventLevelWarning},
		{"info", func(l *slog.Logger) { l.Info("server started", "port", 8080) }, ""},
		{"debug", func(l *slog.Logger) { l.Debug("processing request") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			tt.log(slog.New(NewEventLogHandler(discardHandler{}, db)))

			events := recent(t, db)
			if tt.want == "" {
				if len(events) != 0 {
					t.Errorf("expected no events, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Level != tt.want {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.want)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))

	logger.Info("server started", "port", 8080)

	if events := recent(t, db); len(events) != 1 {
		t.Errorf("expected 1 event with INFO threshold, got %d", len(events))
	}
}

func TestEventLogHandler_CategoryInference(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login attempt blocked", model.EventCategoryAuth},
		{"session revalidation failed", model.EventCategoryAuth},
		{"saving question choices failed", model.EventCategoryCatalog},
		{"topic delete rejected", model.EventCategoryCatalog},
		{"quiz service unreachable", model.EventCategoryAPI},
		{"unknown error occurred", model.EventCategorySystem},
	}

	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	for _, tt := range tests {
		_, _ = db.Exec("DELETE FROM events")
		logger.Error(tt.message)

		events := recent(t, db)
		if len(events) != 1 {
			t.Errorf("%q: expected 1 event, got %d", tt.message, len(events))
			continue
		}
		if events[0].Category != tt.want {
			t.Errorf("%q: Category = %q, want %q", tt.message, events[0].Category, tt.want)
		}
	}
}

func TestEventLogHandler_ExplicitCategoryAndMetadata(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).With("component", "catalog")

	logger.Error("something \"quoted\" happened",
		"category", model.EventCategoryAPI,
		"status", 500,
		"path", "/fields",
		"ip", "10.0.0.1",
	)

	events := recent(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Category != model.EventCategoryAPI {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryAPI)
	}
	if e.IpAddress != "10.0.0.1" {
		t.Errorf("IpAddress = %q, want 10.0.0.1", e.IpAddress)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v (%s)", err, e.Metadata)
	}
	if meta["status"] != "500" || meta["path"] != "/fields" || meta["component"] != "catalog" {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := meta["category"]; ok {
		t.Error("category should not be repeated in metadata")
	}
}
