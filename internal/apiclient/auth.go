// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/olegiv/quizzer/internal/model"
)

// userRecord is the user shape returned by the API. user_name is mapped
// onto model.User.UserName; some deployments already send userName.
type userRecord struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	UserName  string `json:"user_name"`
	UserNameC string `json:"userName"`
	Role      string `json:"role"`
}

func (r userRecord) toUser() (*model.User, error) {
	if r.ID <= 0 {
		return nil, fmt.Errorf("%w: user record without id", ErrMalformedResponse)
	}
	name := r.UserName
	if name == "" {
		name = r.UserNameC
	}
	return &model.User{
		ID:       r.ID,
		Email:    r.Email,
		UserName: name,
		Role:     model.ParseRole(r.Role),
	}, nil
}

func parseUser(raw string) (*model.User, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing user", ErrMalformedResponse)
	}
	var rec userRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return rec.toUser()
}

// LoginResult is a successful authentication.
type LoginResult struct {
	User  *model.User
	Token string
}

// Login authenticates with email and password.
// POST /user/login answers {user, token} or {statusCode, message, data:{access_token, user}}.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/user/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	res := gjson.ParseBytes(body)

	token := firstString(res, "token", "data.access_token", "data.token", "access_token")
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrMalformedResponse)
	}

	user, err := parseUser(firstObject(res, "user", "data.user"))
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token}, nil
}

// CurrentUser fetches the user record for id with the given bearer token.
func (c *Client) CurrentUser(ctx context.Context, token string, id int64) (*model.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/user/"+strconv.FormatInt(id, 10), token, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}

	p := payload(body)
	raw := firstObject(p, "user")
	if raw == "" && p.IsObject() {
		raw = p.Raw
	}
	return parseUser(raw)
}

// RegisterInput is a new student account.
type RegisterInput struct {
	Email    string
	UserName string
	Password string
}

// Register creates a student account. POST /user.
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	body, err := c.do(ctx, http.MethodPost, "/user", "", map[string]string{
		"email":     in.Email,
		"user_name": in.UserName,
		"password":  in.Password,
		"role":      string(model.RoleStudent),
	})
	if err == nil {
		// The API may report a duplicate with a 2xx status and a message.
		if isEmailTaken(serverMessage(body)) {
			return fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
		}
		return nil
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && (httpErr.Status == http.StatusConflict || isEmailTaken(httpErr.Message)) {
		return fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
	}
	return err
}

func isEmailTaken(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already exists")
}
