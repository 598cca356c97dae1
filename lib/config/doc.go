// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves the matrix-link configuration: the account
// credentials, the homeserver URL, and the room to post into.
//
// There are two sources, and a caller picks exactly one per run:
//
//   - [Load] probes an ordered list of file paths ([DefaultPaths] unless
//     the caller overrides it) and parses the first one that exists.
//     Files are YAML; a .json or .jsonc extension additionally strips
//     comments and trailing commas before decoding.
//   - [LoadEnvironment] reads matrix_username, matrix_password,
//     matrix_host and matrix_room_name, after loading an optional .env
//     file from the working directory.
//
// The two are never merged and nothing is defaulted: every field must
// be present in the chosen source. Failures wrap [ErrNotFound] when no
// source exists, or [ErrParse] when the source exists but cannot be
// read, decoded, or validated.
package config
