// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small network helpers shared by config and middleware.
package util

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// MaxBaseURLLength is the maximum allowed length for an upstream API URL.
const MaxBaseURLLength = 2048

// privateIPBlocks contains CIDR ranges for private/reserved IP addresses
// per RFC 1918, RFC 4193, RFC 3927, and RFC 5737.
var privateIPBlocks []*net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",      // RFC 1918 - private
		"172.16.0.0/12",   // RFC 1918 - private
		"192.168.0.0/16",  // RFC 1918 - private
		"127.0.0.0/8",     // RFC 1122 - loopback
		"169.254.0.0/16",  // RFC 3927 - link-local
		"100.64.0.0/10",   // RFC 6598 - shared address (CGNAT)
		"::1/128",         // IPv6 loopback
		"fe80::/10",       // IPv6 link-local
		"fc00::/7",        // RFC 4193 - IPv6 unique local
	}
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			privateIPBlocks = append(privateIPBlocks, block)
		}
	}
}

// IsPrivateIP checks if an IP address falls within a private or loopback range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// IsLocalHost reports whether host is localhost or a private/loopback IP literal.
func IsLocalHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	return IsPrivateIP(net.ParseIP(host))
}

// ValidateBaseURL checks that rawURL can serve as the quiz API base URL and
// returns it normalized without a trailing slash.
func ValidateBaseURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("URL is required")
	}
	if len(rawURL) > MaxBaseURLLength {
		return "", fmt.Errorf("URL exceeds maximum length of %d characters", MaxBaseURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("URL must use http or https scheme")
	}
	if parsed.Hostname() == "" {
		return "", errors.New("URL must have a hostname")
	}
	if parsed.User != nil {
		return "", errors.New("URL must not contain credentials")
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", errors.New("URL must not contain a query or fragment")
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

// ClientIP returns the remote IP of r without the port. chi's RealIP
// middleware has already applied X-Forwarded-For when it runs first.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
