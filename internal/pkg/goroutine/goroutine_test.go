package goroutine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCollectsErrors(t *testing.T) {
	// Arrange
	m := NewManager(4)
	boom := errors.New("boom")

	// Act
	require.True(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	require.True(t, m.Go(context.Background(), func(context.Context) error { return boom }))
	err := m.Wait()

	// Assert
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.Active())
}

func TestManagerRejectsWhenFull(t *testing.T) {
	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// Act
	ok := m.Go(context.Background(), func(context.Context) error { return nil })

	// Assert
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Rejected())
	close(release)
	assert.NoError(t, m.Wait())
}

func TestManagerRecoversPanic(t *testing.T) {
	// Arrange
	m := NewManager(1)

	// Act
	m.Go(context.Background(), func(context.Context) error { panic("kaboom") })

	// Assert
	assert.NoError(t, m.Wait())
}

func TestManagerClosedAfterWait(t *testing.T) {
	// Arrange
	m := NewManager(1)
	require.NoError(t, m.Wait())

	// Act
	ok := m.Go(context.Background(), func(context.Context) error { return nil })

	// Assert
	assert.False(t, ok)
}
