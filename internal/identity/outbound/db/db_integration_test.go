package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("otpgate"),
		postgres.WithUsername("otpgate"),
		postgres.WithPassword("otpgate"),
		postgres.WithInitScripts(filepath.Join("..", "..", "..", "..", "migrations", "0001_init.sql")),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresConvergenceActivatesOnce(t *testing.T) {
	// Arrange
	s := NewDB(startPostgres(t), instrument.NewNoop())
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, entity.NewUser{
		ID: 1849205713, FirstName: "Asha", Username: "asha",
		Email: "Asha@Example.com", Mobile: "9876543210", PasswordHash: "x",
	}))

	// Act
	var (
		wg  sync.WaitGroup
		res [2]*entity.Convergence
		err [2]error
	)
	wg.Go(func() { res[0], err[0] = s.MarkEmailVerified(ctx, 1849205713) })
	wg.Go(func() { res[1], err[1] = s.MarkMobileVerified(ctx, 1849205713) })
	wg.Wait()

	// Assert
	require.NoError(t, err[0])
	require.NoError(t, err[1])
	assert.True(t, res[0].FlagChanged)
	assert.True(t, res[1].FlagChanged)
	assert.NotEqual(t, res[0].Activated, res[1].Activated)

	u, gErr := s.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, gErr)
	assert.True(t, u.Enabled)

	again, aErr := s.MarkEmailVerified(ctx, 1849205713)
	require.NoError(t, aErr)
	assert.False(t, again.FlagChanged)
	assert.False(t, again.Activated)
}

func TestPostgresReplaceAndSweepOTP(t *testing.T) {
	// Arrange
	s := NewDB(startPostgres(t), instrument.NewNoop())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := entity.OTP{
		ID: "0190f0aa-0000-7000-8000-000000000001", Identifier: tuple.Identifier, Channel: tuple.Channel,
		Purpose: tuple.Purpose, CodeHash: "h1", CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}
	second := first
	second.ID = "0190f0aa-0000-7000-8000-000000000002"
	second.CodeHash = "h2"

	// Act
	require.NoError(t, s.ReplaceOTP(ctx, first))
	require.NoError(t, s.ReplaceOTP(ctx, second))

	// Assert
	latest, err := s.FindLatestOTP(ctx, tuple)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	found, err := s.FindActiveOTP(ctx, tuple, "h2")
	require.NoError(t, err)
	used, err := s.MarkOTPUsed(ctx, found.ID, now)
	require.NoError(t, err)
	assert.True(t, used)
	usedAgain, err := s.MarkOTPUsed(ctx, found.ID, now)
	require.NoError(t, err)
	assert.False(t, usedAgain)

	n, err := s.DeleteExpiredOTP(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
