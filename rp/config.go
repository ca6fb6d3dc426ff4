// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package rp

import (
	"fmt"
	"net/url"
)

// Config represents the configuration of a relying party using the
// authorization code flow.
type Config struct {
	// ClientID is the relying party id, which must be the "aud" of id_tokens.
	ClientID string

	// ClientSecret is the relying party secret.  The emulator doesn't
	// authenticate clients, so it's optional.
	ClientSecret string

	// Issuer is the provider's issuer, which is also its discovery URL.
	Issuer string

	// RedirectURL is where the provider sends the user after authentication.
	RedirectURL string

	// Scopes are additional scopes to request.  "openid" is always
	// requested.
	Scopes []string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string
}

// NewConfig composes a new config for a relying party.
func NewConfig(issuer, clientID, redirectURL string, scopes ...string) (*Config, error) {
	const op = "rp.NewConfig"
	c := &Config{
		Issuer:      issuer,
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Scopes:      scopes,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration.  It doesn't verify the issuer is discoverable.
func (c *Config) Validate() error {
	const op = "rp.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(c.Issuer)
	if err != nil {
		return fmt.Errorf("%s: issuer %s is invalid: %s: %w", op, c.Issuer, err, ErrInvalidIssuer)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: issuer %s scheme is not http or https: %w", op, c.Issuer, ErrInvalidIssuer)
	}
	return nil
}
