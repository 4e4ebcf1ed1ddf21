// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/olegiv/quizzer/internal/model"
)

// REST collection paths.
const (
	PathFields    = "/fields"
	PathTopics    = "/topics"
	PathQuestions = "/question"
	PathChoices   = "/choice"
)

// Resource is a typed REST collection: GET|POST path, PATCH|DELETE path/:id.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to the client.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context, token string) ([]T, error) {
	body, err := r.client.do(ctx, http.MethodGet, r.path, token, nil)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := decodePayload(body, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Create posts a new entity and returns the server's copy.
func (r *Resource[T]) Create(ctx context.Context, token string, in any) (T, error) {
	var out T
	body, err := r.client.do(ctx, http.MethodPost, r.path, token, in)
	if err != nil {
		return out, err
	}
	err = decodePayload(body, &out)
	return out, err
}

// Update patches entity id and returns the server's copy.
func (r *Resource[T]) Update(ctx context.Context, token string, id int64, in any) (T, error) {
	var out T
	body, err := r.client.do(ctx, http.MethodPatch, r.itemPath(id), token, in)
	if err != nil {
		return out, err
	}
	err = decodePayload(body, &out)
	return out, err
}

// Delete removes entity id.
func (r *Resource[T]) Delete(ctx context.Context, token string, id int64) error {
	_, err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), token, nil)
	return err
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// Fields returns the /fields collection.
func (c *Client) Fields() *Resource[model.Field] {
	return NewResource[model.Field](c, PathFields)
}

// Topics returns the /topics collection.
func (c *Client) Topics() *Resource[model.Topic] {
	return NewResource[model.Topic](c, PathTopics)
}

// Questions returns the /question collection.
func (c *Client) Questions() *Resource[model.Question] {
	return NewResource[model.Question](c, PathQuestions)
}

// SaveChoices stores the answer options of a question. POST /choice.
func (c *Client) SaveChoices(ctx context.Context, token string, choice model.Choice) error {
	_, err := c.do(ctx, http.MethodPost, PathChoices, token, choice)
	return err
}
