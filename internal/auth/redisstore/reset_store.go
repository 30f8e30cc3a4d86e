// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/threadboard/threadboard/internal/auth"
)

// ResetKeyPrefix namespaces password reset token keys.
const ResetKeyPrefix = "forget-password:"

// ResetTokenStore implements auth.ResetTokenStore on Redis.
type ResetTokenStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewResetTokenStore creates a ResetTokenStore whose tokens live for ttl.
// A non-positive ttl uses auth.ResetTokenExpiry.
func NewResetTokenStore(client redis.Cmdable, ttl time.Duration) *ResetTokenStore {
	if ttl <= 0 {
		ttl = auth.ResetTokenExpiry
	}
	return &ResetTokenStore{client: client, ttl: ttl}
}

// Issue stores a new token for userID and returns it.
func (s *ResetTokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := auth.GenerateResetToken()
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").Wrap(err)
	}

	if err := s.client.Set(ctx, resetKey(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "store reset token").
			With("user_id", userID).
			Wrap(err)
	}
	return token, nil
}

// Consume removes token and returns its owner in one GETDEL, so of two
// concurrent callers only one can observe the user id.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrNotFound)
	}

	raw, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "getdel reset token").
			Wrap(err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, oops.Code("RESET_TOKEN_INVALID").
			With("reason", "malformed owner id").
			Wrap(auth.ErrNotFound)
	}
	return userID, nil
}

func resetKey(token string) string {
	return ResetKeyPrefix + auth.HashResetToken(token)
}

// Compile-time interface check.
var _ auth.ResetTokenStore = (*ResetTokenStore)(nil)
