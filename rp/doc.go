// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package rp is a minimal OIDC relying party: discovery, authorization code
// exchange and id_token verification.  It's what the emulator's own tests use
// to act as the application under test.
package rp
