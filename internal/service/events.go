// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the event log used for the console's audit trail.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/store"
)

// EventService records and queries audit events.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		IpAddress: ipAddress,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		// Written at INFO so the event-log handler does not recurse into the table that just failed.
		slog.Info("failed to record event", "error", err, "message", message)
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// LogAuthEvent records an authentication event. The user agent is reduced to
// browser, OS and device class before it is stored.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress, userAgent string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if userAgent != "" {
		for k, v := range describeAgent(userAgent) {
			metadata[k] = v
		}
	}
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogCatalogEvent records a change to fields, topics or questions.
func (s *EventService) LogCatalogEvent(ctx context.Context, message string, userID *int64, ipAddress, kind string, entityID int64) error {
	return s.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryCatalog, message, userID, ipAddress, map[string]any{
		"kind": kind,
		"id":   entityID,
	})
}

// RecentEvents returns the newest events first.
func (s *EventService) RecentEvents(ctx context.Context, limit int) ([]store.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queries.ListRecentEvents(ctx, int64(limit))
}

// CountEvents returns the number of events on record.
func (s *EventService) CountEvents(ctx context.Context) (int64, error) {
	return s.queries.CountEvents(ctx)
}

// CountErrors returns the number of error-level events on record.
func (s *EventService) CountErrors(ctx context.Context) (int64, error) {
	return s.queries.CountEventsByLevel(ctx, model.EventLevelError)
}

// DeleteOldEvents removes events older than olderThan and returns the count.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().Add(-olderThan))
}

func describeAgent(raw string) map[string]any {
	ua := useragent.Parse(raw)
	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Tablet:
		device = "tablet"
	case ua.Mobile:
		device = "mobile"
	}
	out := map[string]any{"device": device}
	if ua.Name != "" {
		out["browser"] = ua.Name
	}
	if ua.OS != "" {
		out["os"] = ua.OS
	}
	return out
}
