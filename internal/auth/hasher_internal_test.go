// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadboard/threadboard/pkg/errutil"
)

func TestParseArgon2idHash(t *testing.T) {
	t.Run("round trips parameters", func(t *testing.T) {
		hash, err := NewArgon2idHasher().Hash("password")
		require.NoError(t, err)

		params, err := parseArgon2idHash(hash)
		require.NoError(t, err)
		assert.Equal(t, uint32(argon2Memory), params.memory)
		assert.Equal(t, uint32(argon2Time), params.time)
		assert.Equal(t, uint8(argon2Threads), params.threads)
		assert.Len(t, params.salt, argon2SaltLen)
		assert.Len(t, params.key, argon2KeyLen)
	})

	t.Run("reports invalid hash code", func(t *testing.T) {
		_, err := parseArgon2idHash("$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		assert.Contains(t, err.Error(), "unsupported hash algorithm")
	})
}
