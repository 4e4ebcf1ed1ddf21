// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for any 401 response. Callers treat it as
	// "session invalid": tear the session down and send the user to login.
	ErrUnauthorized = errors.New("apiclient: unauthorized")

	// ErrMalformedResponse is returned when a 2xx body cannot be understood.
	ErrMalformedResponse = errors.New("apiclient: malformed response")

	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("apiclient: email already exists")
)

// HTTPError is a non-2xx response from the quiz API.
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Message string // server-provided message, may be empty
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Is makes a 401 HTTPError match ErrUnauthorized.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TransportError is a request that could not complete (DNS, refused
// connection, timeout, unreadable body).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message converts an API error into a message suitable for showing to a user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrUnauthorized) {
		return "Your session has expired. Please log in again."
	}
	if errors.Is(err, ErrEmailTaken) {
		return "Email already exists. Please use a different one."
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return fmt.Sprintf("The quiz service rejected the request (status %d).", httpErr.Status)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Could not reach the quiz service. Please try again."
	}

	if errors.Is(err, ErrMalformedResponse) {
		return "The quiz service returned an unexpected response."
	}

	return "An unexpected error occurred. Please try again."
}
