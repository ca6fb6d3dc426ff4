// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package rp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Client is a relying party bound to one provider.
type Client struct {
	config     *Config
	provider   *oidc.Provider
	httpClient *http.Client
}

// NewClient validates c and runs discovery against its issuer.
func NewClient(ctx context.Context, c *Config) (*Client, error) {
	const op = "rp.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	client, err := NewHTTPClient(c.ProviderCA)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	// makes http req to issuer for discovery
	provider, err := oidc.NewProvider(HTTPClientContext(ctx, client), c.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}
	return &Client{
		config:     c,
		provider:   provider,
		httpClient: client,
	}, nil
}

// Endpoint returns the provider's discovered endpoints.
func (c *Client) Endpoint() oauth2.Endpoint {
	return c.provider.Endpoint()
}

func (c *Client) oauth2Config() oauth2.Config {
	endpoint := c.provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURL,
		Endpoint:     endpoint,
		// Add the "openid" scope, which is a required scope for oidc flows
		Scopes: append([]string{oidc.ScopeOpenID}, c.config.Scopes...),
	}
}

// AuthURL returns the URL a user is sent to for authentication.
func (c *Client) AuthURL(state, nonce string) (string, error) {
	const op = "rp.(Client).AuthURL"
	switch {
	case state == "":
		return "", fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	case nonce == "":
		return "", fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	case state == nonce:
		return "", fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	oauth2Config := c.oauth2Config()
	return oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// Exchange redeems authorizationCode at the token endpoint and verifies the
// returned id_token, including that it's bound to nonce.
func (c *Client) Exchange(ctx context.Context, authorizationCode, nonce string) (*Token, error) {
	const op = "rp.(Client).Exchange"
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	oauth2Config := c.oauth2Config()
	oauth2Token, err := oauth2Config.Exchange(HTTPClientContext(ctx, c.httpClient), authorizationCode)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%s: provider replied %s: %s: %w", op, retrieveErr.Response.Status, retrieveErr.Body, ErrExchangeFailed)
		}
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIdToken)
	}
	claims, err := c.VerifyIDToken(ctx, IDToken(rawIDToken), nonce)
	if err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	scope, _ := oauth2Token.Extra("scope").(string)
	return &Token{
		AccessToken: oauth2Token.AccessToken,
		TokenType:   oauth2Token.TokenType,
		Scope:       scope,
		IDToken:     IDToken(rawIDToken),
		Claims:      *claims,
	}, nil
}

// VerifyIDToken verifies t was signed by the provider for this client and
// that it carries nonce.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (c *Client) VerifyIDToken(ctx context.Context, t IDToken, nonce string) (*IDTokenClaims, error) {
	const op = "rp.(Client).VerifyIDToken"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if nonce == "" {
		return nil, fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	verifier := c.provider.Verifier(&oidc.Config{
		ClientID:             c.config.ClientID,
		SupportedSigningAlgs: []string{oidc.RS256},
	})
	oidcIDToken, err := verifier.Verify(HTTPClientContext(ctx, c.httpClient), string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrIdTokenVerificationFailed)
	}
	if oidcIDToken.Nonce != nonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	return &IDTokenClaims{
		Issuer:   oidcIDToken.Issuer,
		Audience: oidcIDToken.Audience,
		Subject:  oidcIDToken.Subject,
		Nonce:    oidcIDToken.Nonce,
		IssuedAt: oidcIDToken.IssuedAt,
		Expiry:   oidcIDToken.Expiry,
	}, nil
}
