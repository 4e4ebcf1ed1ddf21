// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/olegiv/quizzer/internal/apiclient"
)

var (
	// ErrNotConfirmed is returned by Delete until the user confirms.
	ErrNotConfirmed = errors.New("catalog: delete not confirmed")

	// ErrChoicesFailed is returned when a question was saved but its answer
	// choices were not. The question is still reconciled into the mirror.
	ErrChoicesFailed = errors.New("catalog: failed to save choices")
)

// Resource is the REST collection a Screen talks to.
type Resource[T any] interface {
	List(ctx context.Context, token string) ([]T, error)
	Create(ctx context.Context, token string, in any) (T, error)
	Update(ctx context.Context, token string, id int64, in any) (T, error)
	Delete(ctx context.Context, token string, id int64) error
}

// Definition configures a Screen for one resource type.
type Definition[T Entity, In any] struct {
	// Kind names the collection ("fields", "topics", "questions").
	Kind string

	// Singular is the human-readable item name used in messages.
	Singular string

	// Validate returns per-field errors for in. items is the current mirror
	// content and selfID the edited item's id, or 0 on create.
	Validate func(in In, items []T, selfID int64) map[string]string

	// Body builds the request body sent to the API.
	Body func(in In) any

	// AfterSave runs once the item is saved server-side. Optional.
	AfterSave func(ctx context.Context, token string, saved T, in In) error

	// Dependents are kinds whose mirrors go stale when an item is deleted.
	Dependents []string
}

// Screen applies list fetches and mutations to a Mirror.
type Screen[T Entity, In any] struct {
	def    Definition[T, In]
	res    Resource[T]
	mirror *Mirror[T]
}

// NewScreen binds a definition, a resource and a mirror.
func NewScreen[T Entity, In any](def Definition[T, In], res Resource[T], mirror *Mirror[T]) *Screen[T, In] {
	if mirror == nil {
		mirror = NewMirror[T]()
	}
	return &Screen[T, In]{def: def, res: res, mirror: mirror}
}

// Mirror returns the screen's local list.
func (s *Screen[T, In]) Mirror() *Mirror[T] {
	return s.mirror
}

// Definition returns the screen's configuration.
func (s *Screen[T, In]) Definition() Definition[T, In] {
	return s.def
}

// Load fetches the collection and replaces the mirror.
func (s *Screen[T, In]) Load(ctx context.Context, token string) error {
	items, err := s.res.List(ctx, token)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.def.Kind, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mirror.Replace(items)
	return nil
}

// Validate runs the definition's validator against the current mirror.
func (s *Screen[T, In]) Validate(in In, selfID int64) error {
	if s.def.Validate == nil {
		return nil
	}
	if errs := s.def.Validate(in, s.mirror.Items(), selfID); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Create validates in, posts it and appends the server's copy to the mirror.
func (s *Screen[T, In]) Create(ctx context.Context, token string, in In) (T, error) {
	var zero T
	if err := s.Validate(in, 0); err != nil {
		return zero, err
	}

	saved, err := s.res.Create(ctx, token, s.def.Body(in))
	if err != nil {
		return zero, fmt.Errorf("creating %s: %w", s.def.Singular, err)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := s.checkSaved(saved); err != nil {
		return zero, fmt.Errorf("creating %s: %w", s.def.Singular, err)
	}

	afterErr := s.afterSave(ctx, token, saved, in)
	s.mirror.Insert(saved)
	return saved, afterErr
}

// Update validates in, patches item id and replaces it in the mirror.
func (s *Screen[T, In]) Update(ctx context.Context, token string, id int64, in In) (T, error) {
	var zero T
	if err := s.Validate(in, id); err != nil {
		return zero, err
	}

	saved, err := s.res.Update(ctx, token, id, s.def.Body(in))
	if err != nil {
		return zero, fmt.Errorf("updating %s %d: %w", s.def.Singular, id, err)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := s.checkSaved(saved); err != nil {
		return zero, fmt.Errorf("updating %s %d: %w", s.def.Singular, id, err)
	}

	afterErr := s.afterSave(ctx, token, saved, in)
	if !s.mirror.Update(saved) {
		s.mirror.Insert(saved)
	}
	return saved, afterErr
}

// Delete removes item id once confirmed is true. Without confirmation it
// returns ErrNotConfirmed and makes no request.
func (s *Screen[T, In]) Delete(ctx context.Context, token string, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := s.res.Delete(ctx, token, id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", s.def.Singular, id, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mirror.Remove(id)
	return nil
}

// checkSaved rejects a 2xx reply that carried no entity.
func (s *Screen[T, In]) checkSaved(saved T) error {
	if saved.EntityID() <= 0 {
		return fmt.Errorf("%w: %s without id", apiclient.ErrMalformedResponse, s.def.Singular)
	}
	return nil
}

func (s *Screen[T, In]) afterSave(ctx context.Context, token string, saved T, in In) error {
	if s.def.AfterSave == nil {
		return nil
	}
	return s.def.AfterSave(ctx, token, saved, in)
}
