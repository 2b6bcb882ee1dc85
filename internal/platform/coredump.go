//go:build linux || darwin

// Package platform holds the small process hardening helpers the daemon
// applies before it touches key material.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps prevents derived private keys from ending up in a core
// file.
func DisableCoreDumps() error {
	var rlim unix.Rlimit
	rlim.Cur = 0
	rlim.Max = 0
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}
