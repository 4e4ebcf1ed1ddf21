// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the console's housekeeping jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/quizzer/internal/model"
)

// Default schedules.
const (
	RetentionSchedule = "@daily"
	ProbeSchedule     = "@every 5m"
)

// EventPruner deletes events older than a cutoff.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Pinger reports whether the quiz API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config controls which jobs run.
type Config struct {
	Events        EventPruner
	RetentionDays int
	API           Pinger
	ProbeTimeout  time.Duration
}

// Scheduler runs event retention and API reachability jobs.
type Scheduler struct {
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a new scheduler instance.
func New(cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &Scheduler{
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.Events != nil && s.cfg.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(RetentionSchedule, s.pruneEvents); err != nil {
			return err
		}
	}
	if s.cfg.API != nil {
		if _, err := s.cron.AddFunc(ProbeSchedule, s.probeAPI); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) pruneEvents() {
	olderThan := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	n, err := s.cfg.Events.DeleteOldEvents(context.Background(), olderThan)
	if err != nil {
		s.logger.Error("event retention failed", "error", err, "category", model.EventCategorySystem)
		return
	}
	if n > 0 {
		s.logger.Info("pruned old events", "deleted", n, "retention_days", s.cfg.RetentionDays)
	}
}

func (s *Scheduler) probeAPI() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProbeTimeout)
	defer cancel()

	if err := s.cfg.API.Ping(ctx); err != nil {
		s.logger.Warn("quiz service unreachable", "error", err, "category", model.EventCategoryAPI)
	}
}
