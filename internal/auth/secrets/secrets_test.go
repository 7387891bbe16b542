package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aurum/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, Verify("correct horse", hash))
	assert.ErrorIs(t, Verify("wrong horse", hash), ErrMismatch)
}

func TestHashRejectsShortPasswords(t *testing.T) {
	_, err := Hash("short")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGenerateIsRandom(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
