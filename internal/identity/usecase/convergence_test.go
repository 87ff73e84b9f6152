package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(u *entity.User) {
	u.EmailVerified = false
	u.MobileVerified = false
	u.Enabled = false
}

func TestConvergenceOrders(t *testing.T) {
	tests := []struct {
		name       string
		emailFirst bool
	}{
		{name: "email then mobile", emailFirst: true},
		{name: "mobile then email", emailFirst: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			u := f.seedUser(t, 7, pending)
			ctx := context.Background()
			c := f.uc.convergence

			steps := []func(context.Context, int64) (*entity.Convergence, error){c.MarkEmailVerified, c.MarkMobileVerified}
			if !tt.emailFirst {
				steps[0], steps[1] = steps[1], steps[0]
			}

			// Act
			first, err1 := steps[0](ctx, u.ID)
			welcomesAfterFirst := len(f.notif.welcomeChannels())
			second, err2 := steps[1](ctx, u.ID)
			repeat, err3 := steps[1](ctx, u.ID)

			// Assert
			require.NoError(t, err1)
			require.NoError(t, err2)
			require.NoError(t, err3)

			assert.True(t, first.FlagChanged)
			assert.False(t, first.Activated)
			assert.Zero(t, welcomesAfterFirst)

			assert.True(t, second.FlagChanged)
			assert.True(t, second.Activated)
			assert.True(t, second.User.Enabled)

			assert.False(t, repeat.FlagChanged)
			assert.False(t, repeat.Activated)

			assert.Equal(t, []string{"EMAIL", "SMS"}, f.notif.welcomeChannels())
		})
	}
}

func TestConvergenceConcurrentActivatesOnce(t *testing.T) {
	// Arrange
	f := newFixture(t)
	u := f.seedUser(t, 8, pending)
	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]*entity.Convergence, 2)

	// Act
	wg.Go(func() {
		res, err := f.uc.convergence.MarkEmailVerified(ctx, u.ID)
		assert.NoError(t, err)
		results[0] = res
	})
	wg.Go(func() {
		res, err := f.uc.convergence.MarkMobileVerified(ctx, u.ID)
		assert.NoError(t, err)
		results[1] = res
	})
	wg.Wait()

	// Assert
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].Activated, results[1].Activated)
	assert.Equal(t, []string{"EMAIL", "SMS"}, f.notif.welcomeChannels())
}

func TestConvergenceUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.convergence.MarkEmailVerified(context.Background(), 404)

	assertStatus(t, err, http.StatusNotFound, "User not found")
}
