package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassphrase(t *testing.T) {
	hash, err := HashPassphrase("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassphrase(hash, "correct horse"))
	assert.False(t, CheckPassphrase(hash, "wrong horse"))
	assert.False(t, CheckPassphrase("not-a-hash", "correct horse"))
}

func TestGeneratePassphrase(t *testing.T) {
	a, err := GeneratePassphrase(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)

	b, err := GeneratePassphrase(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
