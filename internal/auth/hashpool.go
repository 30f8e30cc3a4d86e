// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"context"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// HashPool runs password hashing on a bounded set of workers so that a burst
// of logins cannot starve unrelated requests of CPU.
type HashPool struct {
	hasher PasswordHasher
	slots  *semaphore.Weighted
}

// NewHashPool wraps hasher with a pool of size workers.
// A size of zero or less uses GOMAXPROCS.
func NewHashPool(hasher PasswordHasher, size int) *HashPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		hasher: hasher,
		slots:  semaphore.NewWeighted(int64(size)),
	}
}

type hashResult struct {
	hash string
	err  error
}

// Hash hashes password on a pool worker.
// Returns ctx.Err() if the caller gives up before the hash is ready.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", oops.Code("AUTH_HASH_CANCELLED").With("operation", "acquire hash worker").Wrap(err)
	}

	done := make(chan hashResult, 1)
	go func() {
		defer p.slots.Release(1)
		hash, err := p.hasher.Hash(password)
		done <- hashResult{hash: hash, err: err}
	}()

	select {
	case res := <-done:
		return res.hash, res.err
	case <-ctx.Done():
		return "", oops.Code("AUTH_HASH_CANCELLED").With("operation", "hash password").Wrap(ctx.Err())
	}
}

// Verify checks password against hash on a pool worker.
// A cancelled caller observes a mismatch along with ctx.Err().
func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, oops.Code("AUTH_HASH_CANCELLED").With("operation", "acquire hash worker").Wrap(err)
	}

	done := make(chan bool, 1)
	go func() {
		defer p.slots.Release(1)
		done <- p.hasher.Verify(password, hash)
	}()

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, oops.Code("AUTH_HASH_CANCELLED").With("operation", "verify password").Wrap(ctx.Err())
	}
}

// acquire takes a worker slot. A caller that has already given up never
// starts a hash, even when a slot is free.
func (p *HashPool) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.slots.Acquire(ctx, 1)
}
