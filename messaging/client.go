// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/matrix-link/lib/netutil"
	"github.com/bureau-foundation/matrix-link/lib/secret"
)

// clientPrefix is the root of every endpoint used by this package.
const clientPrefix = "/_matrix/client/r0"

// errorBodyLimit bounds how much of a non-Matrix error body is kept in
// a MatrixError message.
const errorBodyLimit = 256

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver (e.g., "https://matrix.example.org").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated Matrix client. It holds only the
// homeserver URL, the HTTP transport, and a logger.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated Matrix client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}

	// Only validated here. Request URLs are built by concatenating the
	// trimmed string with already-escaped paths, so url.URL never gets
	// the chance to re-encode them.
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must use http or https", config.HomeserverURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q has no host", config.HomeserverURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Login authenticates with m.login.password and returns a Session. The
// password Buffer is read but not closed; the caller retains ownership.
//
// A 4xx response wraps ErrAuthenticationFailed. A 2xx response without
// an access token wraps ErrDeserialize.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	subject := "user " + username

	// Password is converted to string at the JSON serialization boundary.
	loginRequest := LoginRequest{
		Type:     LoginTypePassword,
		User:     username,
		Password: password.String(),
	}

	body, err := c.doRequest(ctx, http.MethodPost, clientPrefix+"/login", nil, loginRequest)
	if err != nil {
		return nil, classify(err, ErrAuthenticationFailed, subject)
	}

	var response LoginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrDeserialize, subject, err)
	}
	if response.AccessToken == "" {
		return nil, fmt.Errorf("%w for %s: login response has no access_token", ErrDeserialize, subject)
	}

	token, err := secret.NewFromString(response.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}

	userID := response.UserID
	if userID == "" {
		userID = username
	}

	c.logger.Info("logged in to matrix",
		"user_id", userID,
		"device_id", response.DeviceID,
	)

	return &Session{
		client:      c,
		accessToken: token,
		userID:      userID,
		deviceID:    response.DeviceID,
		homeServer:  response.HomeServer,
	}, nil
}

// doRequest performs an HTTP request to the homeserver and returns the
// response body. On 2xx it returns the body. On any other status it
// returns the body and a *MatrixError. When no response was received it
// returns a plain error that names only the method and path.
//
// accessToken may be nil for unauthenticated endpoints; otherwise it is
// sent as the access_token query parameter.
func (c *Client) doRequest(ctx context.Context, method, path string, accessToken *secret.Buffer, requestBody any) ([]byte, error) {
	requestURL := c.baseURL + path
	if accessToken != nil {
		requestURL += "?" + url.Values{"access_token": {accessToken.String()}}.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		var encoded bytes.Buffer
		encoder := json.NewEncoder(&encoded)
		// Message bodies go to chat clients, not HTML pages; keep <, >
		// and & literal.
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(requestBody); err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s %s: %w", method, path, err)
		}
		bodyReader = &encoded
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s %s: %w", method, path, withoutURL(err))
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("matrix request", "method", method, "path", path)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, withoutURL(err))
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", method, path, err)
	}

	if ClassOf(response.StatusCode) == StatusClassSuccess {
		return responseBody, nil
	}

	matrixErr := &MatrixError{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal(responseBody, matrixErr); jsonErr != nil || matrixErr.Code == "" {
		matrixErr.Code = ""
		matrixErr.Message = netutil.Summarize(responseBody, errorBodyLimit)
	}
	matrixErr.StatusCode = response.StatusCode

	c.logger.Debug("matrix request failed",
		"method", method,
		"path", path,
		"status", response.StatusCode,
		"errcode", matrixErr.Code,
	)

	return responseBody, matrixErr
}

// withoutURL strips the *url.Error wrapper that net/http adds, because
// its message embeds the full request URL and with it the access token.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
