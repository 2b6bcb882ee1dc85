// Package storage persists epoch state and the rotation audit trail. Two
// backends exist: a file backend for single-node deployments and a Mongo
// backend for anything that needs to survive the host.
package storage

import "errors"

// ErrNotFound is returned by state loads before any epoch has been
// bootstrapped.
var ErrNotFound = errors.New("storage: not found")
