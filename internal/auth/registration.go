// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Registration is the sign-up form.
type Registration struct {
	UserName        string
	Email           string
	Password        string
	PasswordConfirm string
}

// Validate checks the form and returns a *ValidationError, or nil.
func (r Registration) Validate() error {
	errs := make(map[string]string)

	if strings.TrimSpace(r.UserName) == "" {
		errs["user_name"] = "User name is required"
	}

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		errs["email"] = "Please enter a valid email (name@example.com)"
	}

	switch {
	case r.Password == "":
		errs["password"] = "Password is required"
	case !strongPassword(r.Password):
		errs["password"] = "Password must include uppercase, lowercase, and a number, and be at least 8 characters long"
	case r.Password != r.PasswordConfirm:
		errs["password_confirm"] = "Passwords do not match"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func strongPassword(pw string) bool {
	if len([]rune(pw)) < MinPasswordLength {
		return false
	}
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}
