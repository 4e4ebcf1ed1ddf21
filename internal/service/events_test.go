// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/store"
)

func setupEventTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestLogEvent(t *testing.T) {
	db := setupEventTestDB(t)
	svc := NewEventService(db)

	userID := int64(123)
	err := svc.LogEvent(context.Background(), model.EventLevelInfo, model.EventCategoryCatalog, "Field created", &userID, "192.168.1.100", map[string]any{
		"key": "value",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var level, category, message, metadata, ip string
	var savedUserID sql.NullInt64
	err = db.QueryRow("SELECT level, category, message, user_id, metadata, ip_address FROM events").
		Scan(&level, &category, &message, &savedUserID, &metadata, &ip)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	if level != "info" || category != "catalog" || message != "Field created" {
		t.Errorf("got level=%q category=%q message=%q", level, category, message)
	}
	if !savedUserID.Valid || savedUserID.Int64 != 123 {
		t.Errorf("user_id = %v, want 123", savedUserID)
	}
	if metadata != `{"key":"value"}` {
		t.Errorf("metadata = %q", metadata)
	}
	if ip != "192.168.1.100" {
		t.Errorf("ip_address = %q", ip)
	}
}

func TestLogEvent_NilUserAndMetadata(t *testing.T) {
	db := setupEventTestDB(t)
	svc := NewEventService(db)

	if err := svc.LogEvent(context.Background(), model.EventLevelWarning, model.EventCategorySystem, "No user", nil, "", nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var savedUserID sql.NullInt64
	var metadata string
	if err := db.QueryRow("SELECT user_id, metadata FROM events").Scan(&savedUserID, &metadata); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if savedUserID.Valid {
		t.Error("user_id should be NULL")
	}
	if metadata != "{}" {
		t.Errorf("metadata = %q, want {}", metadata)
	}
}

func TestLogAuthEvent_UserAgent(t *testing.T) {
	db := setupEventTestDB(t)
	svc := NewEventService(db)

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	if err := svc.LogAuthEvent(context.Background(), model.EventLevelInfo, "User logged in", nil, "10.0.0.1", ua, map[string]any{"email": "a@b.com"}); err != nil {
		t.Fatalf("LogAuthEvent failed: %v", err)
	}

	events, err := svc.RecentEvents(context.Background(), 5)
	if err != nil || len(events) != 1 {
		t.Fatalf("RecentEvents = %d, %v", len(events), err)
	}
	if events[0].Category != model.EventCategoryAuth {
		t.Errorf("Category = %q", events[0].Category)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["device"] != "mobile" {
		t.Errorf("device = %v, want mobile", meta["device"])
	}
	if meta["email"] != "a@b.com" {
		t.Errorf("email = %v", meta["email"])
	}
	if meta["os"] == nil {
		t.Error("os should be recorded")
	}
}

func TestLogCatalogEvent(t *testing.T) {
	db := setupEventTestDB(t)
	svc := NewEventService(db)

	if err := svc.LogCatalogEvent(context.Background(), "Topic deleted", nil, "", "topics", 7); err != nil {
		t.Fatalf("LogCatalogEvent failed: %v", err)
	}

	var metadata string
	_ = db.QueryRow("SELECT metadata FROM events").Scan(&metadata)
	if metadata != `{"id":7,"kind":"topics"}` {
		t.Errorf("metadata = %q", metadata)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db := setupEventTestDB(t)
	svc := NewEventService(db)
	q := store.New(db)
	ctx := context.Background()

	_, _ = q.CreateEvent(ctx, store.CreateEventParams{Level: "error", Category: "system", Message: "old", CreatedAt: time.Now().AddDate(0, 0, -40)})
	_, _ = q.CreateEvent(ctx, store.CreateEventParams{Level: "error", Category: "system", Message: "fresh"})

	n, err := svc.DeleteOldEvents(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if c, _ := svc.CountErrors(ctx); c != 1 {
		t.Errorf("CountErrors = %d, want 1", c)
	}
}
