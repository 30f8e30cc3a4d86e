// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadboard/threadboard/internal/auth"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces argon2id PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
		assert.NotContains(t, hash, "password123")
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("wrongpassword", hash))
		assert.False(t, hasher.Verify("", hash))
	})

	t.Run("plaintext never verifies against itself", func(t *testing.T) {
		assert.False(t, hasher.Verify("correctpassword", "correctpassword"))
	})

	malformed := map[string]string{
		"empty":               "",
		"not a hash":          "not-a-valid-hash",
		"wrong algorithm":     "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"bad version":         "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"unknown version":     "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"bad parameters":      "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"bad salt base64":     "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA",
		"bad key base64":      "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!",
		"threads overflow":    "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",
		"zero threads":        "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA",
		"zero time":           "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA",
		"excessive memory":    "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA",
		"empty key":           "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$",
		"bcrypt hash":         "$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5",
		"truncated separator": "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA",
	}
	for name, bad := range malformed {
		t.Run("malformed hash returns false: "+name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, hasher.Verify("password", bad))
			})
		})
	}
}
