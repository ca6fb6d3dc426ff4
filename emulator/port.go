// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package emulator

import (
	"fmt"
	"net"
	"sync"
)

// maxPortAttempts bounds how often FreePort asks the kernel for a port that
// hasn't been handed out yet.
const maxPortAttempts = 10

var (
	reservedMu    sync.Mutex
	reservedPorts = map[int]struct{}{}
)

// FreePort asks the kernel for a free local TCP port that no other emulator in
// this process has been given.  The port is released before returning, so
// another process may still take it before it's bound.
func FreePort() (int, error) {
	const op = "emulator.FreePort"
	for i := 0; i < maxPortAttempts; i++ {
		port, err := kernelPort()
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", op, err, ErrNoFreePort)
		}
		if reservePort(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%s: gave up after %d attempts: %w", op, maxPortAttempts, ErrNoFreePort)
}

func kernelPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// reservePort records port as taken and reports whether it was free.
func reservePort(port int) bool {
	reservedMu.Lock()
	defer reservedMu.Unlock()
	if _, ok := reservedPorts[port]; ok {
		return false
	}
	reservedPorts[port] = struct{}{}
	return true
}
