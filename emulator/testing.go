// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"context"
)

// TestEmulator is an Emulator that's already serving.  Call Stop when t
// doesn't support Cleanup.
type TestEmulator struct {
	*Emulator

	cancel context.CancelFunc
	done   chan struct{}
}

// StartTestEmulator creates an emulator and serves it in the background until
// the test completes.  Failures to start are reported via t.  Options
// supported: same as New.
func StartTestEmulator(t TestingT, redirectURL string, opt ...Option) *TestEmulator {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	e, err := New(redirectURL, opt...)
	if err != nil {
		t.Errorf("unable to create emulator: %s", err)
		t.FailNow()
		return nil
	}
	l, err := e.listen()
	if err != nil {
		t.Errorf("unable to start emulator: %s", err)
		t.FailNow()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	te := &TestEmulator{
		Emulator: e,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(te.done)
		if err := e.serve(ctx, l); err != nil {
			t.Log(err)
		}
	}()
	if v, ok := interface{}(t).(CleanupT); ok {
		v.Cleanup(te.Stop)
	}
	return te
}

// Stop stops serving and waits for the server to exit.  It's safe to call more
// than once.
func (te *TestEmulator) Stop() {
	te.cancel()
	<-te.done
}

// TestAuthorizeRequest returns an authorization request with the given nonce
// and state, as if the application under test had produced it.
func TestAuthorizeRequest(nonce, state string) *AuthorizeRequest {
	return &AuthorizeRequest{
		Nonce:        nonce,
		State:        state,
		ClientID:     DefaultClientID,
		ResponseType: "code",
		Scopes:       []string{"openid"},
	}
}
