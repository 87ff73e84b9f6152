package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type staticID string

func (s staticID) Generate() string { return string(s) }

func newTestJWT(t *testing.T, clk *fixedClock) *Symmetric {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "otpgate",
		Audiences:  []string{"otpgate-api"},
		TTLMinutes: 15 * time.Minute,
		Clock:      clk,
		UUID:       staticID("jti-1"),
	})
	require.NoError(t, err)

	return j
}

func TestSymmetricRoundTrip(t *testing.T) {
	// Arrange
	clk := &fixedClock{now: time.Now()}
	j := newTestJWT(t, clk)

	// Act
	token, err := j.Generate(42, "john.doe")
	require.NoError(t, err)
	claims, err := j.Verify(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "john.doe", claims.Username)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
}

func TestSymmetricExpired(t *testing.T) {
	// Arrange
	clk := &fixedClock{now: time.Now()}
	j := newTestJWT(t, clk)
	token, err := j.Generate(42, "john.doe")
	require.NoError(t, err)

	// Act
	clk.now = clk.now.Add(16 * time.Minute)
	_, err = j.Verify(token)

	// Assert
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestNewHS512RejectsShortSecret(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short")})

	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestAuthContext(t *testing.T) {
	// Arrange
	ctx := context.Background()

	// Act
	empty := GetAuth(ctx)
	got := GetAuth(SetAuth(ctx, Claims{UserID: 7}))

	// Assert
	assert.Nil(t, empty)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.UserID)
}
