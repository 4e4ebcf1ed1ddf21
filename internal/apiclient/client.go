// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apiclient talks to the remote quiz REST API: authentication,
// the current-user lookup, registration and the catalog resources.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client configuration constants
const (
	DefaultTimeout  = 10 * time.Second // Per-request timeout
	MaxResponseLen  = 1 << 20          // Maximum response body read (1MB)
	UserAgent       = "quizzer/1.0"    // User-Agent header value
	RequestIDHeader = "X-Request-ID"   // Correlation header sent upstream
)

// Config holds client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second to the API, 0 = unlimited
	Burst     int
	UserAgent string
	HTTP      *http.Client // optional, overrides Timeout
}

// Client is an HTTP client for the quiz API.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a new API client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTP
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = UserAgent
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		limiter:   limiter,
		userAgent: ua,
	}
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and returns the raw response body of a successful call.
// in is JSON-encoded when non-nil; token is sent as a bearer credential when
// non-empty.
func (c *Client) do(ctx context.Context, method, path, token string, in any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: err}
		}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	status := resp.StatusCode
	// Some endpoints answer 200 with an error envelope.
	if status >= 200 && status < 300 {
		if code := envelopeStatus(respBody); code >= 400 {
			status = code
		}
	}

	if status < 200 || status >= 300 {
		return nil, &HTTPError{
			Method:  method,
			Path:    path,
			Status:  status,
			Message: serverMessage(respBody),
		}
	}

	return respBody, nil
}

// Ping checks that the API answers HTTP at all. Any response, including
// 404, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodHead, Path: "/", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}
