// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package rp

import (
	"encoding/json"
	"time"
)

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// IDTokenClaims are the verified claims of an id_token.
type IDTokenClaims struct {
	Issuer   string
	Audience []string
	Subject  string
	Nonce    string
	IssuedAt time.Time
	Expiry   time.Time
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
	IDToken     IDToken
	Claims      IDTokenClaims
}
