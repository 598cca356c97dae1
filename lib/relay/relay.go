// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay posts a single message to a Matrix room: log in, join
// the configured room, send, log out.
//
// Once login has succeeded, logout is attempted on every exit path, so
// a failed join or send never leaves the access token live on the
// server. Logout runs on a context detached from the caller's
// cancellation (with its own short deadline), because the usual reason
// for an early exit is that the caller's context just expired. A
// logout failure is logged and never turns a delivered message into an
// error.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/matrix-link/lib/config"
	"github.com/bureau-foundation/matrix-link/lib/secret"
	"github.com/bureau-foundation/matrix-link/messaging"
)

// logoutTimeout bounds the cleanup logout.
const logoutTimeout = 10 * time.Second

// Params configures one relay run.
type Params struct {
	// Client is the homeserver client. Its URL should match
	// Config.ServerURL.
	Client *messaging.Client

	// Config supplies the credentials and the room to post into.
	Config config.Config

	// Message is the text body to send. Must not be empty.
	Message string

	// Logger receives step-level logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Receipt describes a delivered message.
type Receipt struct {
	// UserID is the Matrix user the message was sent as.
	UserID string
	// RoomID is the ID of the joined room.
	RoomID string
	// EventID is the ID of the message event, if the server reported one.
	EventID string
}

// Send runs login, join, send and logout in order. It returns the first
// login, join or send error; the messaging sentinels in the chain
// identify which step failed.
func Send(ctx context.Context, params Params) (Receipt, error) {
	if params.Client == nil {
		return Receipt{}, fmt.Errorf("relay: Client is required")
	}
	if params.Message == "" {
		return Receipt{}, fmt.Errorf("relay: message is empty")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	password, err := secret.NewFromString(params.Config.Password)
	if err != nil {
		return Receipt{}, fmt.Errorf("relay: protecting password: %w", err)
	}
	session, err := params.Client.Login(ctx, params.Config.Username, password)
	password.Close()
	if err != nil {
		return Receipt{}, err
	}
	defer session.Close()

	receipt := Receipt{UserID: session.UserID()}
	receipt.RoomID, receipt.EventID, err = deliver(ctx, session, params.Config.RoomName, params.Message, logger)

	logoutContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if logoutErr := session.Logout(logoutContext); logoutErr != nil {
		logger.Warn("logout failed", "user_id", receipt.UserID, "error", logoutErr)
	}

	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// deliver joins room and sends message into it.
func deliver(ctx context.Context, session *messaging.Session, room, message string, logger *slog.Logger) (roomID, eventID string, err error) {
	roomID, err = session.JoinRoom(ctx, room)
	if err != nil {
		logger.Error("joining room failed", "room", room, "error", err)
		return "", "", err
	}

	eventID, err = session.SendMessage(ctx, roomID, messaging.NewTextMessage(message))
	if err != nil {
		logger.Error("sending message failed", "room_id", roomID, "error", err)
		return "", "", err
	}

	logger.Info("message sent", "room_id", roomID, "event_id", eventID)
	return roomID, eventID, nil
}
