// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"fmt"
	"sync"
)

// TokenRecord is a grant registered by a test and not yet redeemed.
type TokenRecord struct {
	// AccessToken is returned verbatim as the access_token.
	AccessToken string

	// Scopes is returned verbatim as the granted scope.
	Scopes string

	// UserID becomes the "sub" claim of the ID token.
	UserID string

	// Nonce is echoed into the "nonce" claim of the ID token.
	Nonce string
}

// TokenStore maps authorization codes to token records.  It's safe for
// concurrent use and is shared by AddToken and the /token handler.
type TokenStore struct {
	singleUse bool

	mu     sync.Mutex
	tokens map[string]TokenRecord
}

// NewTokenStore returns an empty store. When singleUse is true a record is
// removed by the Redeem call that returns it.
func NewTokenStore(singleUse bool) *TokenStore {
	return &TokenStore{
		singleUse: singleUse,
		tokens:    map[string]TokenRecord{},
	}
}

// Register stores rec under code.
func (s *TokenStore) Register(code string, rec TokenRecord) error {
	const op = "emulator.(TokenStore).Register"
	if code == "" {
		return fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[code]; ok {
		return fmt.Errorf("%s: %q: %w", op, code, ErrDuplicateAuthCode)
	}
	s.tokens[code] = rec
	return nil
}

// Redeem returns the record registered under code, or ErrInvalidAuthCode.
func (s *TokenStore) Redeem(code string) (TokenRecord, error) {
	const op = "emulator.(TokenStore).Redeem"
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[code]
	if !ok {
		return TokenRecord{}, fmt.Errorf("%s: %w", op, ErrInvalidAuthCode)
	}
	if s.singleUse {
		delete(s.tokens, code)
	}
	return rec, nil
}

// Len returns the number of records waiting to be redeemed.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
