package testhelpers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/redis"
)

type RedisContainer struct {
	*redis.RedisContainer
	Addr string
}

// CreateRedisContainer starts a throwaway Redis used as a feature flag store.
func CreateRedisContainer(ctx context.Context) (*RedisContainer, error) {
	redisContainer, err := redis.Run(ctx,
		"redis:7.2",
		redis.WithLogLevel(redis.LogLevelNotice),
		readyOnLog("Ready to accept connections", 1, 10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis container: %w", err)
	}
	addr, err := redisContainer.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get redis endpoint: %w", err)
	}
	return &RedisContainer{RedisContainer: redisContainer, Addr: addr}, nil
}
