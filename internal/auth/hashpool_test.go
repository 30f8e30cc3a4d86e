// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/threadboard/threadboard/internal/auth"
)

// blockingHasher holds every call until release is closed and tracks the
// highest number of concurrent calls.
type blockingHasher struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newBlockingHasher() *blockingHasher {
	return &blockingHasher{release: make(chan struct{})}
}

func (h *blockingHasher) enter() {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-h.release
	h.inFlight.Add(-1)
}

func (h *blockingHasher) Hash(password string) (string, error) {
	h.enter()
	return "hashed:" + password, nil
}

func (h *blockingHasher) Verify(password, hash string) bool {
	h.enter()
	return hash == "hashed:"+password
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool := auth.NewHashPool(hasher, 2)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := pool.Hash(context.Background(), "pw")
			assert.NoError(t, err)
			assert.Equal(t, "hashed:pw", hash)
		}()
	}

	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 2 }, time.Second, time.Millisecond)
	close(hasher.release)
	wg.Wait()

	assert.Equal(t, int32(2), hasher.peak.Load())
}

func TestHashPool_Verify(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	close(hasher.release)
	pool := auth.NewHashPool(hasher, 1)

	ok, err := pool.Verify(context.Background(), "pw", "hashed:pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pool.Verify(context.Background(), "other", "hashed:pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPool_CancelledWaiterGivesUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool := auth.NewHashPool(hasher, 1)

	// Occupy the only worker.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.Hash(context.Background(), "first")
	}()
	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Hash(ctx, "second")
	require.ErrorIs(t, err, context.Canceled)

	ok, err := pool.Verify(ctx, "second", "hashed:second")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)

	close(hasher.release)
	<-done
}

func TestHashPool_CancelDuringHashReleasesWorkerWhenDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool := auth.NewHashPool(hasher, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Hash(ctx, "slow")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// The abandoned hash still holds the worker until it finishes.
	close(hasher.release)
	hash, err := pool.Hash(context.Background(), "next")
	require.NoError(t, err)
	assert.Equal(t, "hashed:next", hash)
}
