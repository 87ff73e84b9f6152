package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerateIsVersion7(t *testing.T) {
	// Act
	id := NewUUID().Generate()

	// Assert
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSnowflakeGenerateIsIncreasing(t *testing.T) {
	// Arrange
	gen, err := NewSnowflakeNode(7)
	require.NoError(t, err)

	// Act
	a := gen.Generate()
	b := gen.Generate()

	// Assert
	assert.Greater(t, b, a)
}

func TestNewSnowflakeNodeRejectsOutOfRange(t *testing.T) {
	_, err := NewSnowflakeNode(4096)

	assert.Error(t, err)
}
