// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// Outcome sentinels. Every error returned by a Client or Session
// operation wraps exactly one of these.
var (
	ErrAuthenticationFailed = errors.New("messaging: authentication failed")
	ErrRoomJoinFailed       = errors.New("messaging: room join failed")
	ErrSendFailed           = errors.New("messaging: send failed")
	ErrLogoutFailed         = errors.New("messaging: logout failed")
	ErrServerError          = errors.New("messaging: server error")
	ErrTransport            = errors.New("messaging: transport error")
	ErrDeserialize          = errors.New("messaging: unexpected response body")
)

// StatusClass is the hundreds digit of an HTTP status code.
type StatusClass int

const (
	StatusClassUnknown StatusClass = iota
	StatusClassInformational
	StatusClassSuccess
	StatusClassRedirect
	StatusClassClientError
	StatusClassServerError
)

// ClassOf returns the status class of an HTTP status code.
func ClassOf(statusCode int) StatusClass {
	switch statusCode / 100 {
	case 1:
		return StatusClassInformational
	case 2:
		return StatusClassSuccess
	case 3:
		return StatusClassRedirect
	case 4:
		return StatusClassClientError
	case 5:
		return StatusClassServerError
	}
	return StatusClassUnknown
}

func (c StatusClass) String() string {
	switch c {
	case StatusClassInformational:
		return "1xx"
	case StatusClassSuccess:
		return "2xx"
	case StatusClassRedirect:
		return "3xx"
	case StatusClassClientError:
		return "4xx"
	case StatusClassServerError:
		return "5xx"
	}
	return "unknown"
}

// MatrixError is a non-2xx response from the homeserver. Callers can use
// errors.As to extract it:
//
//	var matrixErr *MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == ErrCodeForbidden { ... }
//	}
//
// Code and Message come from the standard {"errcode","error"} envelope.
// When the body is not such an envelope (a reverse proxy's HTML page,
// say), Code is empty and Message holds a shortened copy of the body.
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN", "M_UNKNOWN_TOKEN").
	Code string `json:"errcode"`
	// Message is the human-readable error description.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *MatrixError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("matrix: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Class returns the status class of the response.
func (e *MatrixError) Class() StatusClass {
	return ClassOf(e.StatusCode)
}

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown       = "M_UNKNOWN"
)

// IsMatrixError checks whether err wraps a *MatrixError with the given
// error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// classify wraps a doRequest failure in the sentinel for its outcome.
// clientFailure is the operation's 4xx sentinel; subject names what the
// operation acted on, for the message.
func classify(err error, clientFailure error, subject string) error {
	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		return fmt.Errorf("%w for %s: %w", ErrTransport, subject, err)
	}
	switch matrixErr.Class() {
	case StatusClassClientError:
		return fmt.Errorf("%w for %s: %w", clientFailure, subject, matrixErr)
	case StatusClassServerError:
		return fmt.Errorf("%w for %s: %w", ErrServerError, subject, matrixErr)
	default:
		return fmt.Errorf("%w for %s: %w", ErrTransport, subject, matrixErr)
	}
}
