// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// The quiz API answers either with a bare JSON document or wrapped as
// {"statusCode": 200, "message": "...", "data": ...}. These helpers read both.

// payload returns the "data" member of an enveloped body, or the body itself.
func payload(body []byte) gjson.Result {
	res := gjson.ParseBytes(body)
	if data := res.Get("data"); data.Exists() && (data.IsObject() || data.IsArray()) {
		return data
	}
	return res
}

// decodePayload unmarshals the payload of body into v.
func decodePayload(body []byte, v any) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	p := payload(body)
	if err := json.Unmarshal([]byte(p.Raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	res := gjson.ParseBytes(body)
	for _, path := range []string{"message", "error", "data.message"} {
		if v := res.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// envelopeStatus returns the statusCode member of an enveloped body, or 0.
func envelopeStatus(body []byte) int {
	if !gjson.ValidBytes(body) {
		return 0
	}
	if code := gjson.GetBytes(body, "statusCode"); code.Type == gjson.Number {
		return int(code.Int())
	}
	return 0
}

// firstString returns the first non-empty string found at any of paths.
func firstString(res gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := res.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// firstObject returns the raw JSON of the first object found at any of paths.
func firstObject(res gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := res.Get(path); v.IsObject() {
			return v.Raw
		}
	}
	return ""
}
