// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-uuid"
	"golang.org/x/sync/errgroup"
)

// State of an Emulator.
type State int

const (
	// Idle emulators have a port reserved but no listener.
	Idle State = iota

	// Running emulators are bound and serving.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Emulator is an OIDC identity provider for tests.  A test registers grants
// with AddToken and the application under test redeems them at the token
// endpoint.
//
// An Emulator serves:
//
//   - GET  /.well-known/openid-configuration
//   - GET  /jwks
//   - POST /token
type Emulator struct {
	redirectURL *url.URL
	port        int
	store       *TokenStore
	key         *SigningKey
	idTokens    *idTokenIssuer
	handler     *provider
	logger      hclog.Logger

	mu    sync.Mutex
	state State
}

// New creates an Idle emulator that sends users back to redirectURL.  Options
// supported: WithPort, WithClientID, WithLogger, WithNowFunc, WithSigningKey,
// WithReplayableCodes.
func New(redirectURL string, opt ...Option) (*Emulator, error) {
	const op = "emulator.New"
	opts := getEmulatorOpts(opt...)

	var errs *multierror.Error
	var u *url.URL
	if redirectURL == "" {
		errs = multierror.Append(errs, fmt.Errorf("redirect url is empty: %w", ErrInvalidParameter))
	} else {
		var err error
		if u, err = url.Parse(redirectURL); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("redirect url %q is invalid: %s: %w", redirectURL, err, ErrInvalidParameter))
		}
	}
	if opts.withPort < 0 || opts.withPort > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("port %d is out of range: %w", opts.withPort, ErrInvalidParameter))
	}
	if opts.withClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if opts.withLogger == nil {
		errs = multierror.Append(errs, fmt.Errorf("logger is nil: %w", ErrNilParameter))
	}
	if opts.withNowFunc == nil {
		errs = multierror.Append(errs, fmt.Errorf("now func is nil: %w", ErrNilParameter))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := opts.withSigningKey
	if key == nil {
		var err error
		if key, err = defaultSigningKey(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	port := opts.withPort
	if port == 0 {
		var err error
		if port, err = FreePort(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	e := &Emulator{
		redirectURL: u,
		port:        port,
		store:       NewTokenStore(!opts.withReplayableCodes),
		key:         key,
		logger:      opts.withLogger.Named("oidcemu"),
	}

	var err error
	if e.idTokens, err = newIDTokenIssuer(key, opts.withClientID, opts.withNowFunc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if e.handler, err = newProvider(e.IssuerURL(), key, e.store, e.idTokens, e.logger); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// IssuerURL returns the issuer identity: http://localhost:<port>/
func (e *Emulator) IssuerURL() string {
	return fmt.Sprintf("http://localhost:%d/", e.port)
}

// Port returns the port the emulator listens on.
func (e *Emulator) Port() int { return e.port }

// RedirectURL returns the redirect URL AddToken sends users back to.
func (e *Emulator) RedirectURL() string { return e.redirectURL.String() }

// ClientID returns the "aud" of issued ID tokens.
func (e *Emulator) ClientID() string { return e.idTokens.clientID }

// SigningKey returns the key ID tokens are signed with.
func (e *Emulator) SigningKey() *SigningKey { return e.key }

// Store returns the emulator's token store.
func (e *Emulator) Store() *TokenStore { return e.store }

// Handler returns the http.Handler serving the emulator's endpoints.  It can
// be mounted on any server, e.g. an httptest.Server, though the issuer always
// names the emulator's own port.
func (e *Emulator) Handler() http.Handler { return e.handler }

// HTTPClient returns a new client suitable for talking to the emulator.
func (e *Emulator) HTTPClient() *http.Client { return cleanhttp.DefaultClient() }

// State returns the emulator's current state.
func (e *Emulator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AddToken registers a grant for the authorization request req and returns
// the URL the user's browser would be redirected to: the emulator's redirect
// URL with "code" and "state" query parameters.  The code is generated unless
// WithAuthCode is used.
func (e *Emulator) AddToken(accessToken, scopes, userID string, req *AuthorizeRequest, opt ...Option) (string, error) {
	const op = "emulator.(Emulator).AddToken"
	switch {
	case req == nil:
		return "", fmt.Errorf("%s: authorize request is nil: %w", op, ErrNilParameter)
	case req.Nonce == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingNonce)
	case req.State == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingState)
	case userID == "":
		return "", fmt.Errorf("%s: user id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getAddTokenOpts(opt...)

	code := opts.withAuthCode
	if code == "" {
		var err error
		if code, err = uuid.GenerateUUID(); err != nil {
			return "", fmt.Errorf("%s: unable to generate authorization code: %s: %w", op, err, ErrIdGeneratorFailed)
		}
	}

	rec := TokenRecord{
		AccessToken: accessToken,
		Scopes:      scopes,
		UserID:      userID,
		Nonce:       req.Nonce,
	}
	if err := e.store.Register(code, rec); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	e.logger.Debug("registered token", "op", op, "sub", userID)

	redirect := *e.redirectURL
	qv := redirect.Query()
	qv.Set("code", code)
	qv.Set("state", req.State)
	redirect.RawQuery = qv.Encode()
	return redirect.String(), nil
}

// IssueIDToken returns an ID token for userID bound to nonce, signed exactly
// like the ones the token endpoint returns.
func (e *Emulator) IssueIDToken(userID, nonce string) (string, error) {
	const op = "emulator.(Emulator).IssueIDToken"
	t, err := e.idTokens.issue(e.IssuerURL(), userID, nonce)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Run binds the emulator's port and serves until ctx is done.  In-flight
// requests are not drained.  Run returns nil once ctx is done; an emulator
// runs at most once.
func (e *Emulator) Run(ctx context.Context) error {
	const op = "emulator.(Emulator).Run"
	l, err := e.listen()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.serve(ctx, l); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RunWith binds the emulator's port, then serves in the background while fn
// runs.  When fn returns the server is stopped and fn's error is returned.  If
// the server fails first, the context passed to fn is cancelled and RunWith
// still waits for fn to return.
func (e *Emulator) RunWith(ctx context.Context, fn func(ctx context.Context, e *Emulator) error) error {
	const op = "emulator.(Emulator).RunWith"
	if fn == nil {
		return fmt.Errorf("%s: fn is nil: %w", op, ErrNilParameter)
	}
	l, err := e.listen()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.serve(gctx, l)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx, e)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// listen moves the emulator from Idle to Running.  It fails without changing
// state if the port can't be bound.
func (e *Emulator) listen() (net.Listener, error) {
	const op = "emulator.(Emulator).listen"
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRunning)
	}
	addr := net.JoinHostPort("localhost", strconv.Itoa(e.port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to listen on %s: %w", op, addr, err)
	}
	e.state = Running
	e.logger.Info("listening", "op", op, "issuer", e.IssuerURL())
	return l, nil
}

func (e *Emulator) serve(ctx context.Context, l net.Listener) error {
	const op = "emulator.(Emulator).serve"
	srv := &http.Server{
		Handler: e.handler,
		ErrorLog: e.logger.StandardLogger(&hclog.StandardLoggerOptions{
			InferLevels: true,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		<-errCh
		e.logger.Info("stopped", "op", op, "issuer", e.IssuerURL())
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
}
