// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthorizeRequest is an authorization request the application under test
// sent its user to.  Only Nonce and State are used by the emulator; the rest
// is parsed so tests can make assertions about the request.
type AuthorizeRequest struct {
	Nonce        string
	State        string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scopes       []string
}

// ParseAuthorizeURL parses the query of an authorization endpoint URL.
func ParseAuthorizeURL(raw string) (*AuthorizeRequest, error) {
	const op = "emulator.ParseAuthorizeURL"
	if raw == "" {
		return nil, fmt.Errorf("%s: authorize url is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse authorize url: %s: %w", op, err, ErrInvalidParameter)
	}
	qv := u.Query()
	return &AuthorizeRequest{
		Nonce:        qv.Get("nonce"),
		State:        qv.Get("state"),
		ClientID:     qv.Get("client_id"),
		RedirectURI:  qv.Get("redirect_uri"),
		ResponseType: qv.Get("response_type"),
		Scopes:       strings.Fields(qv.Get("scope")),
	}, nil
}
