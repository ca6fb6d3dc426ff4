// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"fmt"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// IDTokenLifetime is the difference between "exp" and "iat" of every issued
// ID token.
const IDTokenLifetime = time.Hour

// idTokenClaims are the claims of an issued ID token.
type idTokenClaims struct {
	jwt.Claims
	Nonce string `json:"nonce"`
}

// idTokenIssuer builds and signs ID tokens.  It holds no mutable state and is
// safe for concurrent use.
type idTokenIssuer struct {
	key      *SigningKey
	clientID string
	nowFunc  func() time.Time
	signer   jose.Signer
}

func newIDTokenIssuer(key *SigningKey, clientID string, nowFunc func() time.Time) (*idTokenIssuer, error) {
	const op = "emulator.newIDTokenIssuer"
	switch {
	case key == nil || key.PrivKey == nil:
		return nil, fmt.Errorf("%s: signing key is nil: %w", op, ErrNilParameter)
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case nowFunc == nil:
		return nil, fmt.Errorf("%s: now func is nil: %w", op, ErrNilParameter)
	}
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: key.Alg, Key: key.PrivKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", key.KeyID),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create signer: %s: %w", op, err, ErrInvalidKey)
	}
	return &idTokenIssuer{
		key:      key,
		clientID: clientID,
		nowFunc:  nowFunc,
		signer:   sig,
	}, nil
}

// issue returns a compact serialized ID token for userID bound to nonce.
func (i *idTokenIssuer) issue(issuer, userID, nonce string) (string, error) {
	const op = "emulator.(idTokenIssuer).issue"
	switch {
	case issuer == "":
		return "", fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	case userID == "":
		return "", fmt.Errorf("%s: user id is empty: %w", op, ErrInvalidParameter)
	case nonce == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingNonce)
	}
	// read the clock once so exp is exactly iat + IDTokenLifetime
	now := i.nowFunc().Truncate(time.Second)
	claims := idTokenClaims{
		Claims: jwt.Claims{
			Issuer:   issuer,
			Subject:  userID,
			Audience: jwt.Audience{i.clientID},
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(IDTokenLifetime)),
		},
		Nonce: nonce,
	}
	raw, err := jwt.Signed(i.signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign id_token: %w", op, err)
	}
	return raw, nil
}
