// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package redisstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"

	"github.com/threadboard/threadboard/internal/auth"
	"github.com/threadboard/threadboard/internal/auth/redisstore"
)

var _ = Describe("ResetTokenStore", func() {
	var (
		ctx   context.Context
		mr    *miniredis.Miniredis
		store *redisstore.ResetTokenStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var client *redis.Client
		mr, client = startRedis()
		store = redisstore.NewResetTokenStore(client, 0)
	})

	Describe("Issue", func() {
		It("stores the owner under a hashed key with a three day TTL", func() {
			token, err := store.Issue(ctx, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(HaveLen(36))

			key := redisstore.ResetKeyPrefix + auth.HashResetToken(token)
			Expect(mr.Exists(key)).To(BeTrue())
			Expect(mr.TTL(key)).To(Equal(auth.ResetTokenExpiry))
			Expect(mr.Exists(redisstore.ResetKeyPrefix + token)).To(BeFalse())

			val, err := mr.Get(key)
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("42"))
		})

		It("leaves earlier tokens for the same user valid", func() {
			first, err := store.Issue(ctx, 7)
			Expect(err).NotTo(HaveOccurred())
			second, err := store.Issue(ctx, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).NotTo(Equal(first))

			id, err := store.Consume(ctx, first)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(7)))
		})
	})

	Describe("Consume", func() {
		It("returns the owner once", func() {
			token, err := store.Issue(ctx, 9)
			Expect(err).NotTo(HaveOccurred())

			id, err := store.Consume(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(9)))

			_, err = store.Consume(ctx, token)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects tokens that were never issued", func() {
			_, err := store.Consume(ctx, "00000000-0000-4000-8000-000000000000")
			Expect(err).To(MatchError(auth.ErrNotFound))

			_, err = store.Consume(ctx, "")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects tokens past their TTL", func() {
			token, err := store.Issue(ctx, 9)
			Expect(err).NotTo(HaveOccurred())

			mr.FastForward(auth.ResetTokenExpiry + time.Second)

			_, err = store.Consume(ctx, token)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("lets exactly one concurrent consumer win", func() {
			token, err := store.Issue(ctx, 11)
			Expect(err).NotTo(HaveOccurred())

			const racers = 16
			var (
				wg       sync.WaitGroup
				wins     atomic.Int32
				notFound atomic.Int32
			)
			for range racers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := store.Consume(ctx, token)
					switch {
					case err == nil:
						wins.Add(1)
					case isNotFound(err):
						notFound.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(wins.Load()).To(Equal(int32(1)))
			Expect(notFound.Load()).To(Equal(int32(racers - 1)))
		})

		It("treats a corrupt owner id as not found", func() {
			token := "11111111-1111-4111-8111-111111111111"
			Expect(mr.Set(redisstore.ResetKeyPrefix+auth.HashResetToken(token), "not-a-number")).To(Succeed())

			_, err := store.Consume(ctx, token)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("surfaces store outages as non-NotFound errors", func() {
			mr.SetError("LOADING dataset in memory")

			_, err := store.Consume(ctx, "11111111-1111-4111-8111-111111111111")
			Expect(err).To(HaveOccurred())
			Expect(isNotFound(err)).To(BeFalse())
		})
	})
})
