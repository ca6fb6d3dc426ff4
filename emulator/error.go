// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"errors"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidKey        = errors.New("invalid signing key")
	ErrInvalidAuthCode   = errors.New("invalid authorization code")
	ErrDuplicateAuthCode = errors.New("duplicate authorization code")
	ErrMissingNonce      = errors.New("nonce is missing")
	ErrMissingState      = errors.New("state is missing")
	ErrNoFreePort        = errors.New("no free port")
	ErrAlreadyRunning    = errors.New("emulator is already running")
	ErrIdGeneratorFailed = errors.New("id generation failed")
)
