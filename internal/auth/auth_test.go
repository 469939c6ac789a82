package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewSharedSecret(t *testing.T) {
	t.Run("derives hash from plaintext", func(t *testing.T) {
		gate, err := NewSharedSecret("", "admin123")
		require.NoError(t, err)
		assert.True(t, gate.Authenticate("admin123"))
		assert.False(t, gate.Authenticate("admin124"))
		assert.False(t, gate.Authenticate(""))
	})

	t.Run("uses precomputed hash", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)

		gate, err := NewSharedSecret(string(hash), "")
		require.NoError(t, err)
		assert.True(t, gate.Authenticate("s3cret"))
		assert.False(t, gate.Authenticate("admin123"))
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := NewSharedSecret("", "")
		assert.Error(t, err)
	})
}
