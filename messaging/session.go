// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bureau-foundation/matrix-link/lib/secret"
)

// Session is an authenticated Matrix session: a Client plus the access
// token returned by Login. It must not be used after Close.
type Session struct {
	client      *Client
	accessToken *secret.Buffer
	userID      string
	deviceID    string
	homeServer  string
}

// UserID returns the Matrix user ID reported at login (e.g.,
// "@alice:example.org"), or the login username if the server did not
// report one.
func (s *Session) UserID() string {
	return s.userID
}

// DeviceID returns the device ID assigned at login.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// HomeServer returns the server name reported at login, if any.
func (s *Session) HomeServer() string {
	return s.homeServer
}

// Close releases the access token memory. Idempotent. Close does not
// log out; call Logout first to invalidate the token server-side.
func (s *Session) Close() error {
	if s.accessToken != nil {
		return s.accessToken.Close()
	}
	return nil
}

// JoinRoom joins a room by ID or alias and returns the room ID. The name
// is escaped as a single path segment.
//
// A 4xx response wraps ErrRoomJoinFailed.
func (s *Session) JoinRoom(ctx context.Context, room string) (string, error) {
	if room == "" {
		return "", fmt.Errorf("messaging: room is required for join")
	}

	subject := "room " + room
	path := clientPrefix + "/join/" + url.PathEscape(room)
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return "", classify(err, ErrRoomJoinFailed, subject)
	}

	var response JoinResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrDeserialize, subject, err)
	}
	if response.RoomID == "" {
		return "", fmt.Errorf("%w for %s: join response has no room_id", ErrDeserialize, subject)
	}

	s.client.logger.Debug("joined matrix room",
		"room", room,
		"room_id", response.RoomID,
	)
	return response.RoomID, nil
}

// SendMessage sends content as an m.room.message event and returns the
// event ID, which is empty if the server did not report one.
//
// A 4xx response wraps ErrSendFailed.
func (s *Session) SendMessage(ctx context.Context, roomID string, content MessageContent) (string, error) {
	if roomID == "" {
		return "", fmt.Errorf("messaging: room ID is required for send")
	}

	subject := "room " + roomID
	path := fmt.Sprintf("%s/rooms/%s/send/%s",
		clientPrefix,
		url.PathEscape(roomID),
		url.PathEscape(EventTypeRoomMessage),
	)
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, content)
	if err != nil {
		return "", classify(err, ErrSendFailed, subject)
	}

	// The send already happened; a body we cannot read only costs us
	// the event ID.
	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		s.client.logger.Debug("send response has no readable event_id",
			"room_id", roomID,
			"error", err,
		)
	}

	s.client.logger.Debug("sent matrix message",
		"room_id", roomID,
		"event_id", response.EventID,
	)
	return response.EventID, nil
}

// Logout invalidates the access token on the server. The local copy is
// released by Close, not here.
//
// A 4xx response wraps ErrLogoutFailed.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.client.doRequest(ctx, http.MethodPost, clientPrefix+"/logout", s.accessToken, struct{}{})
	if err != nil {
		return classify(err, ErrLogoutFailed, "user "+s.userID)
	}

	s.client.logger.Debug("logged out of matrix", "user_id", s.userID)
	return nil
}
