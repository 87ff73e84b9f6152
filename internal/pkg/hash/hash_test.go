package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHMACSHA256IsDeterministic(t *testing.T) {
	// Arrange
	h := NewHMACSHA256("otp-secret")

	// Act
	a, errA := h.Hash("123456")
	b, errB := h.Hash("123456")
	c, errC := NewHMACSHA256("other-secret").Hash("123456")

	// Assert
	require.NoError(t, errA)
	require.NoError(t, errB)
	require.NoError(t, errC)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.True(t, h.Verify(string(a), "123456"))
	assert.False(t, h.Verify(string(a), "000000"))
}

func TestNewPasswordSelectsAlgorithm(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		prefix    string
	}{
		{name: "bcrypt", algorithm: AlgorithmBcrypt, prefix: "$2a$"},
		{name: "argon2id", algorithm: AlgorithmArgon2id, prefix: "$argon2id$"},
		{name: "unknown falls back", algorithm: "md5", prefix: "$2a$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := NewPassword(tt.algorithm, bcrypt.MinCost, "pepper")

			// Act
			hashed, err := h.Hash("Secret123!")

			// Assert
			require.NoError(t, err)
			assert.Contains(t, string(hashed), tt.prefix)
			assert.True(t, h.Verify(string(hashed), "Secret123!"))
			assert.False(t, h.Verify(string(hashed), "Secret123?"))
		})
	}
}
