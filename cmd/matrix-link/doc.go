// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Matrix-link posts one text message to a Matrix room and exits. It logs
// in with the configured password, joins the configured room, sends the
// message given as its only argument, and logs out again. Configuration
// comes from the first existing YAML file among /etc/matrix_link/config.yaml
// and ./config.yaml (or the --config paths), or, with --env, from the
// matrix_* environment variables.
//
// Exit status is 0 when the message was sent, 1 on any configuration or
// protocol failure, and 2 on a usage error.
package main
