// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the part of the Matrix client-server API (r0)
// that matrix-link needs: password login, joining a room, sending a text
// message, and logging out.
//
// [Client] is unauthenticated and holds nothing but the homeserver URL,
// the HTTP client handle, and a logger. [Client.Login] returns a
// [Session], which adds the access token. The token is kept in a
// secret.Buffer and is sent as the access_token query parameter on every
// authenticated request; callers must call [Session.Close] to release
// it.
//
// Every request is dispatched on the status class of the response. 2xx
// bodies are decoded; anything else becomes a [*MatrixError] carrying
// the status code and, when the body is a Matrix error envelope, the
// errcode. Operations then wrap one sentinel per outcome:
//
//	4xx           ErrAuthenticationFailed / ErrRoomJoinFailed / ErrSendFailed / ErrLogoutFailed
//	5xx           ErrServerError
//	no response   ErrTransport (also 1xx and unfollowed 3xx)
//	bad 2xx body  ErrDeserialize
//
// so callers can branch with errors.Is and still reach the status code
// with errors.As. Nothing is retried.
//
// Request URLs are built by string concatenation, with room names and
// IDs escaped as single path segments, so that an alias like
// "#ops:example.org" is not cut short at the '#'.
package messaging
