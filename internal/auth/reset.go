// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// ResetTokenExpiry is how long an issued reset token stays consumable.
const ResetTokenExpiry = 3 * 24 * time.Hour

// ResetTokenStore issues and consumes single-use password reset tokens.
type ResetTokenStore interface {
	// Issue creates a token for userID. Tokens issued earlier for the same
	// user remain valid.
	Issue(ctx context.Context, userID int64) (string, error)

	// Consume atomically looks up and deletes token, returning its owner.
	// Unknown, expired and already consumed tokens all return ErrNotFound.
	Consume(ctx context.Context, token string) (int64, error)
}

// GenerateResetToken creates a random UUIDv4 reset token.
func GenerateResetToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return id.String(), nil
}

// HashResetToken computes the SHA256 hash of a reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
