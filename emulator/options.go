// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultClientID is the audience of every ID token unless WithClientID is
// used.
const DefaultClientID = "CLIENT-ID"

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// emulatorOptions is the set of available options for New
type emulatorOptions struct {
	withPort            int
	withClientID        string
	withLogger          hclog.Logger
	withNowFunc         func() time.Time
	withSigningKey      *SigningKey
	withReplayableCodes bool
}

func emulatorDefaults() emulatorOptions {
	return emulatorOptions{
		withClientID: DefaultClientID,
		withLogger:   hclog.NewNullLogger(),
		withNowFunc:  time.Now,
	}
}

// getEmulatorOpts gets the defaults and applies the opt overrides passed
// in.
func getEmulatorOpts(opt ...Option) emulatorOptions {
	opts := emulatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// addTokenOptions is the set of available options for AddToken
type addTokenOptions struct {
	withAuthCode string
}

func addTokenDefaults() addTokenOptions {
	return addTokenOptions{}
}

func getAddTokenOpts(opt ...Option) addTokenOptions {
	opts := addTokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPort specifies the port the emulator listens on.  If not set, a free
// port is picked when the emulator is created.
func WithPort(port int) Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withPort = port
		}
	}
}

// WithClientID overrides the "aud" of issued ID tokens.
func WithClientID(clientID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withClientID = clientID
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withLogger = l
		}
	}
}

// WithNowFunc provides an optional clock used for the "iat" and "exp" claims.
func WithNowFunc(fn func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withNowFunc = fn
		}
	}
}

// WithSigningKey replaces the fixed test key.
func WithSigningKey(k *SigningKey) Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withSigningKey = k
		}
	}
}

// WithReplayableCodes keeps token records after redemption, so the same
// authorization code can be exchanged any number of times.
func WithReplayableCodes() Option {
	return func(o interface{}) {
		if o, ok := o.(*emulatorOptions); ok {
			o.withReplayableCodes = true
		}
	}
}

// WithAuthCode specifies the authorization code AddToken registers instead of
// generating one.
func WithAuthCode(code string) Option {
	return func(o interface{}) {
		if o, ok := o.(*addTokenOptions); ok {
			o.withAuthCode = code
		}
	}
}
