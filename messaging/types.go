// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

// Protocol constants used on the wire.
const (
	// LoginTypePassword is the m.login.password login flow.
	LoginTypePassword = "m.login.password"

	// EventTypeRoomMessage is the event type of chat messages.
	EventTypeRoomMessage = "m.room.message"

	// MsgTypeText is the msgtype of plain text messages.
	MsgTypeText = "m.text"
)

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// LoginResponse is returned by the login endpoint. Only AccessToken is
// required; home_server is deprecated and absent on current servers.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	HomeServer  string `json:"home_server,omitempty"`
}

// JoinResponse is returned by the join endpoint.
type JoinResponse struct {
	RoomID string `json:"room_id"`
}

// MessageContent is the content of an m.room.message event.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: MsgTypeText,
		Body:    body,
	}
}

// SendEventResponse is returned by the send endpoint.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}
