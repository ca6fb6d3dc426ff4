// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// oidcemu (OIDC emulator) provides an in-process OpenID Connect identity
// provider for integration tests of applications that log users in with the
// authorization code flow, plus a small relying party that exercises it.
//
// See the emulator and rp packages, and cmd/oidcemu for a standalone server.
package oidcemu
