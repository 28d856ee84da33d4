package flags

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
)

type RedisFlags struct {
	client *redis.Client
}

func NewRedisFlags(client *redis.Client) *RedisFlags {
	return &RedisFlags{client: client}
}

func createKey(name string) string {
	return fmt.Sprintf("flag:%s", name)
}

func (r *RedisFlags) GetFlag(ctx context.Context, name string) (*domain.Flag, error) {
	data, err := r.client.Get(ctx, createKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: flag %q is not set", domain.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w: failed to get flag %q: %s", domain.ErrUnavailable, domain.ErrInternalCache, name, err.Error())
	}
	var flag domain.Flag
	if err := json.Unmarshal(data, &flag); err != nil {
		return nil, fmt.Errorf("%w: malformed flag %q: %s", domain.ErrInternalCache, name, err.Error())
	}
	return &flag, nil
}

func (r *RedisFlags) SetFlag(ctx context.Context, flag domain.Flag) error {
	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("%w: error marshalling flag: %s", domain.ErrInternalCache, err.Error())
	}
	if err := r.client.Set(ctx, createKey(flag.Name), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: failed to store flag %q: %s", domain.ErrInternalCache, flag.Name, err.Error())
	}
	return nil
}

func (r *RedisFlags) DeleteFlag(ctx context.Context, name string) error {
	result, err := r.client.Del(ctx, createKey(name)).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to delete flag %q: %s", domain.ErrInternalCache, name, err.Error())
	}
	if result == 0 {
		return fmt.Errorf("%w: flag %q is not set", domain.ErrNotFound, name)
	}
	return nil
}
