// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// SessionTokenBytes is the size of a session id before hex encoding.
const SessionTokenBytes = 32 // 32 bytes = 64 hex chars

// SessionStore maps opaque session ids to authenticated users.
// Expiry is the backing store's concern.
type SessionStore interface {
	// Create allocates a new session id bound to userID.
	Create(ctx context.Context, userID int64) (string, error)

	// Get returns the user bound to sessionID, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (int64, error)

	// Destroy removes the session. It returns only once the store has
	// acknowledged the removal.
	Destroy(ctx context.Context, sessionID string) error
}

// GenerateSessionToken creates a secure random session id.
func GenerateSessionToken() (string, error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HashSessionToken computes the SHA256 hash of a session id.
// Stores key sessions by this hash so the raw cookie value is never persisted.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
