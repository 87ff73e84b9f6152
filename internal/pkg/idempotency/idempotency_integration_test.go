package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestExecAgainstRedisRunsOnceUnderContention(t *testing.T) {
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// Arrange
	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	tr := NewWithPrefix(client, "test:")
	var calls atomic.Int32
	var wg sync.WaitGroup

	// Act
	for range 8 {
		wg.Go(func() {
			_ = tr.Exec(ctx, "notification:otp:1", func(context.Context) error {
				calls.Add(1)
				return nil
			}, WithSkipCompleted())
		})
	}
	wg.Wait()

	// Assert
	assert.EqualValues(t, 1, calls.Load())
	state, err := tr.Acquire(ctx, "notification:otp:1", 0)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
}
