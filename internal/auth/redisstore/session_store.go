// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package redisstore provides Redis-backed session and reset token stores.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/threadboard/threadboard/internal/auth"
)

// SessionKeyPrefix namespaces session keys.
const SessionKeyPrefix = "sess:"

type sessionData struct {
	UserID int64 `json:"userId"`
}

// SessionStore implements auth.SessionStore on Redis. Keys expire after the
// configured TTL and are never refreshed on read.
type SessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore. A ttl of zero stores sessions
// without expiry.
func NewSessionStore(client redis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create allocates a new session id bound to userID.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}

	payload, err := json.Marshal(sessionData{UserID: userID})
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "marshal session").
			Wrap(err)
	}

	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session").
			With("user_id", userID).
			Wrap(err)
	}
	return token, nil
}

// Get returns the user bound to sessionID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil || data.UserID == 0 {
		return 0, oops.Code("SESSION_NOT_FOUND").
			With("reason", "malformed session payload").
			Wrap(auth.ErrNotFound)
	}
	return data.UserID, nil
}

// Destroy deletes the session. Deleting an absent session succeeds.
func (s *SessionStore) Destroy(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

func sessionKey(token string) string {
	return SessionKeyPrefix + auth.HashSessionToken(token)
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
