// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/matrix-link/lib/config"
	"github.com/bureau-foundation/matrix-link/messaging"
)

const homeserverToken = "syt_cli_token"

type seenRequest struct {
	path  string
	token string
	body  []byte
}

// mockHomeserver records every request and answers the login, join,
// send and logout endpoints. failures maps an endpoint path suffix to
// the status it should return instead.
type mockHomeserver struct {
	*httptest.Server

	mu       sync.Mutex
	seen     []seenRequest
	failures map[string]int
}

func newMockHomeserver(t *testing.T, failures map[string]int) *mockHomeserver {
	t.Helper()
	mock := &mockHomeserver{failures: failures}
	mock.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		mock.mu.Lock()
		mock.seen = append(mock.seen, seenRequest{
			path:  request.URL.Path,
			token: request.URL.Query().Get("access_token"),
			body:  body,
		})
		mock.mu.Unlock()

		for suffix, status := range failures {
			if strings.HasSuffix(request.URL.Path, suffix) {
				writer.WriteHeader(status)
				fmt.Fprintf(writer, `{"errcode":"M_UNKNOWN","error":"%s failed"}`, suffix)
				return
			}
		}

		writer.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(request.URL.Path, "/login"):
			fmt.Fprintf(writer, `{"access_token":%q,"device_id":"CLI","user_id":"@bot:test.local","home_server":"test.local"}`, homeserverToken)
		case strings.Contains(request.URL.Path, "/join/"):
			io.WriteString(writer, `{"room_id":"!ops:test.local"}`)
		case strings.HasSuffix(request.URL.Path, "/send/m.room.message"):
			io.WriteString(writer, `{"event_id":"$evt"}`)
		case strings.HasSuffix(request.URL.Path, "/logout"):
			io.WriteString(writer, `{}`)
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(mock.Close)
	return mock
}

func (m *mockHomeserver) requests() []seenRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]seenRequest(nil), m.seen...)
}

func (m *mockHomeserver) paths() []string {
	var paths []string
	for _, request := range m.requests() {
		paths = append(paths, request.path)
	}
	return paths
}

var (
	loginPath  = "/_matrix/client/r0/login"
	joinPath   = "/_matrix/client/r0/join/#ops:test.local"
	sendPath   = "/_matrix/client/r0/rooms/!ops:test.local/send/m.room.message"
	logoutPath = "/_matrix/client/r0/logout"
)

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`username: bot
password: "s3cret \"quoted\""
server_url: %s
room_name: "#ops:test.local"
`, serverURL)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func runCommand(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func assertPaths(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("requests = %v, want %v", got, want)
	}
}

func TestRun_FullFlow(t *testing.T) {
	mock := newMockHomeserver(t, nil)
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "build #42 passed")
	if code != exitSuccess {
		t.Fatalf("exit code = %d, want %d; stderr:\n%s", code, exitSuccess, stderr)
	}

	assertPaths(t, mock.paths(), loginPath, joinPath, sendPath, logoutPath)

	requests := mock.requests()
	if requests[0].token != "" {
		t.Errorf("login must not carry a token, got %q", requests[0].token)
	}
	for _, request := range requests[1:] {
		if request.token != homeserverToken {
			t.Errorf("%s carried token %q, want %q", request.path, request.token, homeserverToken)
		}
	}

	var login messaging.LoginRequest
	if err := json.Unmarshal(requests[0].body, &login); err != nil {
		t.Fatalf("login body: %v", err)
	}
	if login.Type != "m.login.password" || login.User != "bot" || login.Password != `s3cret "quoted"` {
		t.Errorf("login body = %+v, want configured credentials", login)
	}

	var content messaging.MessageContent
	if err := json.Unmarshal(requests[2].body, &content); err != nil {
		t.Fatalf("send body: %v", err)
	}
	if content.MsgType != "m.text" || content.Body != "build #42 passed" {
		t.Errorf("send body = %+v", content)
	}

	if strings.Contains(stderr, homeserverToken) || strings.Contains(stderr, "s3cret") {
		t.Errorf("credentials leaked to stderr:\n%s", stderr)
	}
}

func TestRun_MessageEscaping(t *testing.T) {
	mock := newMockHomeserver(t, nil)
	configPath := writeConfig(t, mock.URL)
	message := "line one\nsaid \"hello\"\ttab \\ backslash"

	code, _, stderr := runCommand("--config", configPath, message)
	if code != exitSuccess {
		t.Fatalf("exit code = %d; stderr:\n%s", code, stderr)
	}

	raw := string(mock.requests()[2].body)
	if !strings.Contains(raw, `line one\nsaid \"hello\"\ttab \\ backslash`) {
		t.Errorf("message not escaped exactly once on the wire: %s", raw)
	}
	var content messaging.MessageContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		t.Fatalf("send body: %v", err)
	}
	if content.Body != message {
		t.Errorf("received %q, want %q", content.Body, message)
	}
}

func TestRun_LoginRejected(t *testing.T) {
	mock := newMockHomeserver(t, map[string]int{"/login": http.StatusUnauthorized})
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "hello")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	assertPaths(t, mock.paths(), loginPath)
	if !strings.Contains(stderr, "authentication failed") {
		t.Errorf("expected authentication failure on stderr:\n%s", stderr)
	}
}

func TestRun_JoinFailureLogsOut(t *testing.T) {
	mock := newMockHomeserver(t, map[string]int{"/join/#ops:test.local": http.StatusForbidden})
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "hello")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	assertPaths(t, mock.paths(), loginPath, joinPath, logoutPath)
	if !strings.Contains(stderr, "room join failed") {
		t.Errorf("expected join failure on stderr:\n%s", stderr)
	}
}

func TestRun_SendFailureLogsOut(t *testing.T) {
	mock := newMockHomeserver(t, map[string]int{"/send/m.room.message": http.StatusInternalServerError})
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "hello")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	assertPaths(t, mock.paths(), loginPath, joinPath, sendPath, logoutPath)
	if !strings.Contains(stderr, "sending message failed") {
		t.Errorf("expected send failure to be logged:\n%s", stderr)
	}
}

func TestRun_LogoutFailureAfterSend(t *testing.T) {
	mock := newMockHomeserver(t, map[string]int{"/logout": http.StatusBadGateway})
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "hello")
	if code != exitSuccess {
		t.Fatalf("exit code = %d, want %d; stderr:\n%s", code, exitSuccess, stderr)
	}
	assertPaths(t, mock.paths(), loginPath, joinPath, sendPath, logoutPath)
	if !strings.Contains(stderr, "logout failed") {
		t.Errorf("expected logout warning:\n%s", stderr)
	}
}

func TestRun_NoConfigFound(t *testing.T) {
	mock := newMockHomeserver(t, nil)
	dir := t.TempDir()

	code, _, stderr := runCommand(
		"--config", filepath.Join(dir, "etc.yaml"),
		"--config", filepath.Join(dir, "local.yaml"),
		"hello",
	)
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	if len(mock.requests()) != 0 {
		t.Errorf("expected no requests, got %v", mock.paths())
	}
	if !strings.Contains(stderr, config.ErrNotFound.Error()) {
		t.Errorf("expected not-found error on stderr:\n%s", stderr)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("username: bot\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	code, _, stderr := runCommand("--config", path, "hello")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stderr, "password is required") {
		t.Errorf("expected validation error on stderr:\n%s", stderr)
	}
}

func TestRun_EnvironmentConfig(t *testing.T) {
	mock := newMockHomeserver(t, nil)
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvUsername, "bot")
	t.Setenv(config.EnvPassword, "pw")
	t.Setenv(config.EnvHost, mock.URL)
	t.Setenv(config.EnvRoomName, "#ops:test.local")

	code, _, stderr := runCommand("--env", "from the environment")
	if code != exitSuccess {
		t.Fatalf("exit code = %d; stderr:\n%s", code, stderr)
	}
	assertPaths(t, mock.paths(), loginPath, joinPath, sendPath, logoutPath)
}

func TestRun_EnvironmentUnset(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{config.EnvUsername, config.EnvPassword, config.EnvHost, config.EnvRoomName} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	code, _, stderr := runCommand("--env", "hello")
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stderr, config.ErrNotFound.Error()) {
		t.Errorf("expected not-found error on stderr:\n%s", stderr)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing message", nil, "message argument is required"},
		{"empty message", []string{""}, "must not be empty"},
		{"two messages", []string{"one", "two"}, "exactly one message argument"},
		{"unknown flag", []string{"--bogus", "hello"}, "unknown flag"},
		{"env with config", []string{"--env", "--config", "x.yaml", "hello"}, "mutually exclusive"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, _, stderr := runCommand(test.args...)
			if code != exitUsage {
				t.Fatalf("exit code = %d, want %d", code, exitUsage)
			}
			if !strings.Contains(stderr, test.wantMsg) {
				t.Errorf("expected %q on stderr:\n%s", test.wantMsg, stderr)
			}
			if !strings.Contains(stderr, "Usage: matrix-link") {
				t.Errorf("expected usage text on stderr:\n%s", stderr)
			}
		})
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	code, stdout, _ := runCommand("--help")
	if code != exitSuccess {
		t.Fatalf("--help exit code = %d", code)
	}
	if !strings.Contains(stdout, "Usage: matrix-link") || !strings.Contains(stdout, "--config") {
		t.Errorf("unexpected help output:\n%s", stdout)
	}

	code, stdout, _ = runCommand("--version")
	if code != exitSuccess {
		t.Fatalf("--version exit code = %d", code)
	}
	if !strings.HasPrefix(stdout, "matrix-link ") {
		t.Errorf("unexpected version output: %q", stdout)
	}
}

func TestRun_MessageStartingWithDash(t *testing.T) {
	mock := newMockHomeserver(t, nil)
	configPath := writeConfig(t, mock.URL)

	code, _, stderr := runCommand("--config", configPath, "--", "-5 degrees outside")
	if code != exitSuccess {
		t.Fatalf("exit code = %d; stderr:\n%s", code, stderr)
	}
	var content messaging.MessageContent
	if err := json.Unmarshal(mock.requests()[2].body, &content); err != nil {
		t.Fatalf("send body: %v", err)
	}
	if content.Body != "-5 degrees outside" {
		t.Errorf("received %q", content.Body)
	}
}
