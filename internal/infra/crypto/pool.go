// Package crypto provides the signing and verification primitives shared by
// the token issuer and the biometric challenge protocol.
package crypto

import (
	"context"

	"aegis/internal/errors"
)

// Pool bounds the number of concurrent signature operations so a burst of
// sign-ins cannot exhaust CPU ahead of request handling.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with the given number of worker slots.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	return &Pool{
		slots: make(chan struct{}, size),
	}
}

// Do runs fn once a worker slot is free. It returns the context error if the
// caller gives up while queued.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "crypto pool wait cancelled")
	}
	defer func() { <-p.slots }()

	return fn()
}
