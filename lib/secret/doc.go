// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials (the login password and the session
// access token) in memory that the Go runtime never manages.
//
// A [Buffer] is backed by an anonymous mmap region, locked into RAM so
// it cannot be swapped, and excluded from core dumps where the kernel
// supports it. Close zeroes and unmaps the region. Strings obtained via
// [Buffer.String] are heap copies and should only be created at the
// point where a protocol call needs them.
package secret
