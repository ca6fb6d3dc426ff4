// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package rp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/oidcemu/emulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedirectURL = "http://localhost:8080/callback"

// testLogin runs the authorization code flow up to the redirect back to the
// relying party and returns the authorization code from it.
func testLogin(t *testing.T, e *emulator.TestEmulator, c *Client, accessToken, scopes, userID, state, nonce string) string {
	t.Helper()
	require := require.New(t)
	authURL, err := c.AuthURL(state, nonce)
	require.NoError(err)
	req, err := emulator.ParseAuthorizeURL(authURL)
	require.NoError(err)
	redirect, err := e.AddToken(accessToken, scopes, userID, req)
	require.NoError(err)
	u, err := url.Parse(redirect)
	require.NoError(err)
	require.Equal(state, u.Query().Get("state"))
	return u.Query().Get("code")
}

func testClient(t *testing.T, e *emulator.TestEmulator) *Client {
	t.Helper()
	cfg, err := NewConfig(e.IssuerURL(), e.ClientID(), testRedirectURL)
	require.NoError(t, err)
	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func TestClient_Exchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("alice", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)

		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		tk, err := c.Exchange(ctx, code, "n-123")
		require.NoError(err)
		assert.Equal("AT1", tk.AccessToken)
		assert.Equal("bearer", tk.TokenType)
		assert.Equal("openid", tk.Scope)
		assert.Equal("alice", tk.Claims.Subject)
		assert.Equal("n-123", tk.Claims.Nonce)
		assert.Equal(e.IssuerURL(), tk.Claims.Issuer)
		assert.Equal([]string{emulator.DefaultClientID}, tk.Claims.Audience)
		assert.Equal(time.Hour, tk.Claims.Expiry.Sub(tk.Claims.IssuedAt))
	})

	t.Run("round-trip", func(t *testing.T) {
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)
		tests := []struct {
			accessToken string
			scopes      string
			userID      string
			nonce       string
		}{
			{accessToken: "AT1", scopes: "openid", userID: "alice", nonce: "n-1"},
			{accessToken: "opaque/with+chars=", scopes: "openid email profile", userID: "bob@example.com", nonce: "ñ-2"},
			{accessToken: "", scopes: "", userID: "eve", nonce: "n-3"},
		}
		for _, tt := range tests {
			t.Run(tt.userID, func(t *testing.T) {
				assert, require := assert.New(t), require.New(t)
				code := testLogin(t, e, c, tt.accessToken, tt.scopes, tt.userID, "state-"+tt.userID, tt.nonce)
				tk, err := c.Exchange(ctx, code, tt.nonce)
				if tt.accessToken == "" {
					// golang.org/x/oauth2 rejects responses without an access_token
					assert.Error(err)
					return
				}
				require.NoError(err)
				assert.Equal(tt.accessToken, tk.AccessToken)
				assert.Equal(tt.scopes, tk.Scope)
				assert.Equal(tt.userID, tk.Claims.Subject)
				assert.Equal(tt.nonce, tk.Claims.Nonce)
			})
		}
	})

	t.Run("unknown-code", func(t *testing.T) {
		assert := assert.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)
		tk, err := c.Exchange(ctx, "does-not-exist", "n-123")
		assert.ErrorIs(err, ErrExchangeFailed)
		assert.Contains(err.Error(), "invalid_grant")
		assert.Nil(tk)
	})

	t.Run("code-replay", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)
		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		_, err := c.Exchange(ctx, code, "n-123")
		require.NoError(err)
		_, err = c.Exchange(ctx, code, "n-123")
		assert.ErrorIs(err, ErrExchangeFailed)
	})

	t.Run("wrong-nonce", func(t *testing.T) {
		assert := assert.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)
		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		_, err := c.Exchange(ctx, code, "n-999")
		assert.ErrorIs(err, ErrInvalidNonce)
	})

	t.Run("wrong-audience", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL, emulator.WithClientID("someone-else"))
		cfg, err := NewConfig(e.IssuerURL(), "my-client", testRedirectURL)
		require.NoError(err)
		c, err := NewClient(ctx, cfg)
		require.NoError(err)
		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		_, err = c.Exchange(ctx, code, "n-123")
		assert.ErrorIs(err, ErrIdTokenVerificationFailed)
	})

	t.Run("expired", func(t *testing.T) {
		assert := assert.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL, emulator.WithNowFunc(func() time.Time {
			return time.Now().Add(-2 * time.Hour)
		}))
		c := testClient(t, e)
		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		_, err := c.Exchange(ctx, code, "n-123")
		assert.ErrorIs(err, ErrIdTokenVerificationFailed)
	})

	t.Run("empty-code", func(t *testing.T) {
		assert := assert.New(t)
		e := emulator.StartTestEmulator(t, testRedirectURL)
		c := testClient(t, e)
		_, err := c.Exchange(ctx, "", "n-123")
		assert.ErrorIs(err, ErrInvalidParameter)
	})
}

func TestClient_IssuerConsistency(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	e := emulator.StartTestEmulator(t, testRedirectURL)
	c := testClient(t, e)

	resp, err := e.HTTPClient().Get(e.IssuerURL() + ".well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	var doc struct {
		Issuer string `json:"issuer"`
	}
	require.NoError(json.NewDecoder(resp.Body).Decode(&doc))

	want := "http://localhost:" + itoa(e.Port()) + "/"
	assert.Equal(want, e.IssuerURL())
	assert.Equal(want, doc.Issuer)

	for i := 0; i < 3; i++ {
		code := testLogin(t, e, c, "AT1", "openid", "alice", "s-456", "n-123")
		tk, err := c.Exchange(context.Background(), code, "n-123")
		require.NoError(err)
		assert.Equal(doc.Issuer, tk.Claims.Issuer)
	}
	assert.Equal(e.IssuerURL()+"token", c.Endpoint().TokenURL)
	assert.Equal(e.IssuerURL()+"authorization", c.Endpoint().AuthURL)
}

func TestClient_AuthURL(t *testing.T) {
	t.Parallel()
	e := emulator.StartTestEmulator(t, testRedirectURL)
	c := testClient(t, e)

	tests := []struct {
		name    string
		state   string
		nonce   string
		wantErr bool
	}{
		{name: "valid", state: "s", nonce: "n"},
		{name: "missing-state", nonce: "n", wantErr: true},
		{name: "missing-nonce", state: "s", wantErr: true},
		{name: "equal", state: "x", nonce: "x", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := c.AuthURL(tt.state, tt.nonce)
			if tt.wantErr {
				assert.ErrorIs(err, ErrInvalidParameter)
				return
			}
			require.NoError(err)
			req, err := emulator.ParseAuthorizeURL(got)
			require.NoError(err)
			assert.Equal(tt.state, req.State)
			assert.Equal(tt.nonce, req.Nonce)
			assert.Equal(emulator.DefaultClientID, req.ClientID)
			assert.Equal(testRedirectURL, req.RedirectURI)
			assert.Equal("code", req.ResponseType)
			assert.Equal([]string{"openid"}, req.Scopes)
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("nil-config", func(t *testing.T) {
		_, err := NewClient(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
	t.Run("not-running", func(t *testing.T) {
		e, err := emulator.New(testRedirectURL)
		require.NoError(t, err)
		cfg, err := NewConfig(e.IssuerURL(), e.ClientID(), testRedirectURL)
		require.NoError(t, err)
		_, err = NewClient(context.Background(), cfg)
		assert.Error(t, err)
	})
	t.Run("issuer-mismatch", func(t *testing.T) {
		e := emulator.StartTestEmulator(t, testRedirectURL)
		// go-oidc requires the discovered issuer to match exactly
		cfg, err := NewConfig("http://127.0.0.1:"+itoa(e.Port())+"/", e.ClientID(), testRedirectURL)
		require.NoError(t, err)
		_, err = NewClient(context.Background(), cfg)
		assert.Error(t, err)
	})
}
