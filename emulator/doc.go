// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package emulator provides an in-process OIDC identity provider for integration
tests of applications that log users in with the authorization code flow.

A test creates an Emulator with the redirect URL of the application under test
and points the application at the emulator's issuer:

	e, err := emulator.New("http://localhost:8080/callback")
	if err != nil {
		// ...
	}
	err = e.RunWith(ctx, func(ctx context.Context, e *emulator.Emulator) error {
		// configure the application with e.IssuerURL() and start a login,
		// which yields an authorization URL containing a nonce and state.
		req, err := emulator.ParseAuthorizeURL(authURL)
		if err != nil {
			return err
		}
		callback, err := e.AddToken("access-token", "openid", "alice", req)
		if err != nil {
			return err
		}
		// send the application's client to callback; the application then
		// redeems the code at the emulator's token endpoint.
		return nil
	})

ID tokens are signed RS256 with a fixed, public test key (see TestKeyID and
TestRSAPrivateKey) and are valid for one hour.  Authorization codes can be
redeemed once, unless the emulator is created with WithReplayableCodes.

The emulator trusts its caller completely and must never be used outside of
tests.
*/
package emulator
