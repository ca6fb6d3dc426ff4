// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
)

const (
	discoveryPath = "/.well-known/openid-configuration"
	authorizePath = "/authorization"
	tokenPath     = "/token"
	jwksPath      = "/jwks"

	// invalidAuthCodeMsg is the error_description of a token response for an
	// unknown or already redeemed code.
	invalidAuthCodeMsg = "Invalid authorization code."
)

// discoveryDocument is the reply of the discovery endpoint.
type discoveryDocument struct {
	Issuer             string   `json:"issuer"`
	AuthEndpoint       string   `json:"authorization_endpoint"`
	TokenEndpoint      string   `json:"token_endpoint"`
	JWKSURI            string   `json:"jwks_uri"`
	ResponseTypes      []string `json:"response_types_supported"`
	SubjectTypes       []string `json:"subject_types_supported"`
	IDTokenSigningAlgs []string `json:"id_token_signing_alg_values_supported"`
}

// tokenResponse is the successful reply of the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	IDToken     string `json:"id_token"`
}

// tokenErrorResponse is an RFC 6749 section 5.2 error reply.
type tokenErrorResponse struct {
	Code string `json:"error"`
	Desc string `json:"error_description,omitempty"`
}

// provider serves the emulator's endpoints.  Everything but the store is
// immutable once it's built, so one provider is shared by all requests.
type provider struct {
	issuer    string
	discovery []byte
	jwks      []byte
	store     *TokenStore
	idTokens  *idTokenIssuer
	logger    hclog.Logger
	router    chi.Router
}

func newProvider(issuer string, key *SigningKey, store *TokenStore, idTokens *idTokenIssuer, logger hclog.Logger) (*provider, error) {
	const op = "emulator.newProvider"
	doc := discoveryDocument{
		Issuer:             issuer,
		AuthEndpoint:       issuer + authorizePath[1:],
		TokenEndpoint:      issuer + tokenPath[1:],
		JWKSURI:            issuer + jwksPath[1:],
		ResponseTypes:      []string{"code"},
		SubjectTypes:       []string{"public"},
		IDTokenSigningAlgs: []string{string(key.Alg)},
	}
	discovery, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode discovery document: %w", op, err)
	}
	jwks, err := key.marshalJWKS()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := &provider{
		issuer:    issuer,
		discovery: discovery,
		jwks:      jwks,
		store:     store,
		idTokens:  idTokens,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Get(discoveryPath, func(w http.ResponseWriter, _ *http.Request) {
		p.write(w, http.StatusOK, p.discovery)
	})
	r.Get(jwksPath, func(w http.ResponseWriter, _ *http.Request) {
		p.write(w, http.StatusOK, p.jwks)
	})
	r.Post(tokenPath, p.handleToken)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	p.router = r
	return p, nil
}

// ServeHTTP implements the emulator's http.Handler.
func (p *provider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	const op = "emulator.(provider).ServeHTTP"
	p.logger.Debug("request", "op", op, "method", req.Method, "path", req.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	p.router.ServeHTTP(w, req)
}

func (p *provider) handleToken(w http.ResponseWriter, req *http.Request) {
	const op = "emulator.(provider).handleToken"
	if err := req.ParseForm(); err != nil {
		p.logger.Warn("malformed token request", "op", op, "error", err)
		p.writeTokenError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	code := req.PostForm.Get("code")
	if code == "" {
		p.writeTokenError(w, http.StatusBadRequest, "invalid_request", "missing code parameter")
		return
	}

	rec, err := p.store.Redeem(code)
	switch {
	case errors.Is(err, ErrInvalidAuthCode):
		p.logger.Warn("unknown authorization code", "op", op)
		p.writeTokenError(w, http.StatusBadRequest, "invalid_grant", invalidAuthCodeMsg)
		return
	case err != nil:
		p.logger.Error("unable to redeem authorization code", "op", op, "error", err)
		p.writeTokenError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	// signing happens after Redeem released the store lock
	idToken, err := p.idTokens.issue(p.issuer, rec.UserID, rec.Nonce)
	if err != nil {
		p.logger.Error("unable to issue id_token", "op", op, "error", err)
		p.writeTokenError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	reply := tokenResponse{
		AccessToken: rec.AccessToken,
		TokenType:   "bearer",
		Scope:       rec.Scopes,
		IDToken:     idToken,
	}
	b, err := json.Marshal(&reply)
	if err != nil {
		p.logger.Error("unable to encode token response", "op", op, "error", err)
		p.writeTokenError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	p.logger.Debug("issued tokens", "op", op, "sub", rec.UserID)
	p.write(w, http.StatusOK, b)
}

func (p *provider) writeTokenError(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	body := tokenErrorResponse{
		Code: errorCode,
		Desc: errorMessage,
	}
	b, err := json.Marshal(&body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	p.write(w, statusCode, b)
}

func (p *provider) write(w http.ResponseWriter, statusCode int, b []byte) {
	const op = "emulator.(provider).write"
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		p.logger.Debug("unable to write response", "op", op, "error", err)
	}
}
