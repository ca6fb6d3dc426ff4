// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTestEmulator(t *testing.T) {
	t.Parallel()
	t.Run("testing.T", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		te := StartTestEmulator(t, "http://localhost:8080/callback")
		require.NotNil(te)
		assert.Equal(Running, te.State())

		resp, err := te.HTTPClient().Get(te.IssuerURL() + ".well-known/openid-configuration")
		require.NoError(err)
		resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
	})
	t.Run("testing-logger", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var buf bytes.Buffer
		logger := hclog.New(&hclog.LoggerOptions{Output: &buf})
		l, err := NewTestingLogger(logger)
		require.NoError(err)

		te := StartTestEmulator(l, "/cb", WithLogger(logger))
		require.NotNil(te)
		te.Stop()
		te.Stop()

		_, err = te.HTTPClient().Get(te.IssuerURL() + "jwks")
		assert.Error(err)
		assert.Contains(buf.String(), "listening")
		assert.Contains(buf.String(), "stopped")
	})
	t.Run("invalid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var buf bytes.Buffer
		l, err := NewTestingLogger(hclog.New(&hclog.LoggerOptions{Output: &buf}))
		require.NoError(err)
		assert.Panics(func() { StartTestEmulator(l, "") })
		assert.Contains(buf.String(), "unable to create emulator")
	})
}

func TestNewTestingLogger(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	l, err := NewTestingLogger(nil)
	assert.Error(err)
	assert.Nil(l)
}

func TestTestAuthorizeRequest(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	got := TestAuthorizeRequest("n", "s")
	assert.Equal("n", got.Nonce)
	assert.Equal("s", got.State)
	assert.Equal("code", got.ResponseType)
	assert.Equal([]string{"openid"}, got.Scopes)
}
