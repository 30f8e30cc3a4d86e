// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package redisstore_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"

	"github.com/threadboard/threadboard/internal/auth"
	"github.com/threadboard/threadboard/internal/auth/redisstore"
)

var _ = Describe("SessionStore", func() {
	const ttl = 24 * time.Hour

	var (
		ctx   context.Context
		mr    *miniredis.Miniredis
		store *redisstore.SessionStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var client *redis.Client
		mr, client = startRedis()
		store = redisstore.NewSessionStore(client, ttl)
	})

	It("resolves a created session to its user", func() {
		sessionID, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessionID).To(HaveLen(64))

		userID, err := store.Get(ctx, sessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(userID).To(Equal(int64(5)))
	})

	It("keys sessions by the hash of the id", func() {
		sessionID, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		key := redisstore.SessionKeyPrefix + auth.HashSessionToken(sessionID)
		Expect(mr.Exists(key)).To(BeTrue())
		Expect(mr.TTL(key)).To(Equal(ttl))
		Expect(mr.Exists(redisstore.SessionKeyPrefix + sessionID)).To(BeFalse())
	})

	It("gives each login an independent session", func() {
		first, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		second, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).NotTo(Equal(first))

		Expect(store.Destroy(ctx, first)).To(Succeed())

		_, err = store.Get(ctx, first)
		Expect(err).To(MatchError(auth.ErrNotFound))
		userID, err := store.Get(ctx, second)
		Expect(err).NotTo(HaveOccurred())
		Expect(userID).To(Equal(int64(5)))
	})

	It("treats unknown and empty ids as absent", func() {
		_, err := store.Get(ctx, "deadbeef")
		Expect(err).To(MatchError(auth.ErrNotFound))

		_, err = store.Get(ctx, "")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("expires sessions with the store TTL", func() {
		sessionID, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		mr.FastForward(ttl + time.Second)

		_, err = store.Get(ctx, sessionID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("does not refresh the TTL on read", func() {
		sessionID, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		mr.FastForward(ttl / 2)
		_, err = store.Get(ctx, sessionID)
		Expect(err).NotTo(HaveOccurred())

		key := redisstore.SessionKeyPrefix + auth.HashSessionToken(sessionID)
		Expect(mr.TTL(key)).To(Equal(ttl / 2))
	})

	It("treats destroying an absent session as success", func() {
		Expect(store.Destroy(ctx, "never-existed")).To(Succeed())
	})

	It("reports destroy failures", func() {
		sessionID, err := store.Create(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		mr.SetError("READONLY You can't write against a read only replica.")

		err = store.Destroy(ctx, sessionID)
		Expect(err).To(HaveOccurred())
		Expect(isNotFound(err)).To(BeFalse())
	})

	It("treats malformed payloads as absent", func() {
		sessionID := "cafe"
		Expect(mr.Set(redisstore.SessionKeyPrefix+auth.HashSessionToken(sessionID), "{not json")).To(Succeed())

		_, err := store.Get(ctx, sessionID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
