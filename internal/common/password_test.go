package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("секрет")
	require.NoError(t, err)
	require.NoError(t, ValidateHash(hash))

	assert.True(t, VerifyPassword("секрет", hash))
	assert.False(t, VerifyPassword("секрет ", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestValidateHashRejectsGarbage(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bad$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
	} {
		assert.ErrorIs(t, ValidateHash(h), ErrBadHashFormat, h)
		assert.False(t, VerifyPassword("x", h))
	}
}
