package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Redis test helpers.
//
// Environment variables:
//   - TEST_REDIS_ADDR: Redis address (default: localhost:6379)
//
// Tests use database 15 and flush it between runs; never point
// TEST_REDIS_ADDR at a Redis instance holding real data.

const testRedisDB = 15

// GetRedisTestAddr returns the Redis address for tests.
func GetRedisTestAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// SkipIfNoRedis skips the test when no Redis instance is reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: GetRedisTestAddr(), DB: testRedisDB})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", GetRedisTestAddr(), err)
	}
}

// SetupRedis returns a client against the test database, flushed clean.
// The client is closed automatically when the test finishes.
func SetupRedis(t *testing.T) *redis.Client {
	t.Helper()

	SkipIfNoRedis(t)

	client := redis.NewClient(&redis.Options{Addr: GetRedisTestAddr(), DB: testRedisDB})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.FlushDB(context.Background()).Err())
	return client
}
