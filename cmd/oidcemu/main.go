// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidcemu/emulator"
)

// Environment variables consulted when the matching flag isn't set
const (
	redirectURLEnv = "OIDCEMU_REDIRECT_URL"
	logLevelEnv    = "OIDCEMU_LOG_LEVEL"
)

type config struct {
	redirectURL  string
	port         int
	clientID     string
	logLevel     string
	replayCodes  bool
	accessToken  string
	scopes       string
	user         string
	authorizeURL string
}

func parseFlags(args []string) (*config, error) {
	const op = "parseFlags"
	fs := flag.NewFlagSet("oidcemu", flag.ContinueOnError)
	c := &config{}
	fs.StringVar(&c.redirectURL, "redirect-url", os.Getenv(redirectURLEnv), "URL users are redirected to with the authorization code (env "+redirectURLEnv+")")
	fs.IntVar(&c.port, "port", 0, "port to listen on; a free port is picked when zero")
	fs.StringVar(&c.clientID, "client-id", emulator.DefaultClientID, "audience of issued id_tokens")
	fs.StringVar(&c.logLevel, "log-level", envOr(logLevelEnv, "info"), "log level: trace, debug, info, warn or error (env "+logLevelEnv+")")
	fs.BoolVar(&c.replayCodes, "replay-codes", false, "allow authorization codes to be redeemed more than once")
	fs.StringVar(&c.accessToken, "access-token", "", "access token of a grant to register at startup")
	fs.StringVar(&c.scopes, "scopes", "openid", "scope of the grant registered at startup")
	fs.StringVar(&c.user, "user", "", "subject of the grant registered at startup")
	fs.StringVar(&c.authorizeURL, "authorize-url", "", "authorization URL (with nonce and state) the grant registered at startup answers")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.redirectURL == "" {
		return nil, fmt.Errorf("%s: -redirect-url or %s is required", op, redirectURLEnv)
	}
	if c.user != "" && c.authorizeURL == "" {
		return nil, fmt.Errorf("%s: -user requires -authorize-url", op)
	}
	return c, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	c, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		os.Exit(2)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "oidcemu",
		Level: hclog.LevelFromString(c.logLevel),
	})

	if err := run(c, logger); err != nil {
		logger.Error("emulator failed", "error", err)
		os.Exit(1)
	}
}

func run(c *config, logger hclog.Logger) error {
	opts := []emulator.Option{
		emulator.WithPort(c.port),
		emulator.WithClientID(c.clientID),
		emulator.WithLogger(logger),
	}
	if c.replayCodes {
		opts = append(opts, emulator.WithReplayableCodes())
	}
	e, err := emulator.New(c.redirectURL, opts...)
	if err != nil {
		return err
	}

	// handle ctrl-c
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return e.RunWith(ctx, func(ctx context.Context, e *emulator.Emulator) error {
		fmt.Printf("issuer: %s\n", e.IssuerURL())
		if c.user != "" {
			req, err := emulator.ParseAuthorizeURL(c.authorizeURL)
			if err != nil {
				return err
			}
			redirect, err := e.AddToken(c.accessToken, c.scopes, c.user, req)
			if err != nil {
				return err
			}
			fmt.Printf("redirect: %s\n", redirect)
		}
		<-ctx.Done()
		return nil
	})
}
