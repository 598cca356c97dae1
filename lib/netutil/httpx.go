// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP response helpers shared by the Matrix
// client.
//
// Response reads are bounded at [MaxResponseSize] so a misbehaving
// homeserver or an intermediate proxy cannot make the client buffer an
// unbounded body. Error bodies that are not Matrix error envelopes (an
// HTML page from a reverse proxy, for instance) are shortened with
// [Summarize] before they end up in an error message.
package netutil

import (
	"io"
	"strings"
	"unicode/utf8"
)

// MaxResponseSize bounds JSON API response reads: 16 MB. Client-server
// API responses used here are a few hundred bytes.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes. Use
// instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// Summarize returns body as a single trimmed line of at most limit
// bytes, for inclusion in error messages. Truncation never splits a
// UTF-8 sequence and is marked with "...".
func Summarize(body []byte, limit int) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
