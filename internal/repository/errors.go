// Package repository defines the data access layer for events and
// bookings.  Methods with a Tx suffix run against a caller supplied
// transaction and never fall back to the pool; the caller owns the
// transaction and must commit or roll it back.  The remaining methods
// serve the read-only and administrative surfaces and use the pool
// directly.
package repository

import "errors"

// ErrEventNotFound is returned by the pool-backed event lookups when no
// event with the requested ID exists.  Handlers should translate this
// into an HTTP 404 response.  The transactional lookup used during a
// reservation reports absence as a boolean instead.
var ErrEventNotFound = errors.New("event not found")

// ErrUnknownDialect is returned when the configured database driver has
// no matching SQL dialect.
var ErrUnknownDialect = errors.New("unknown sql dialect")
