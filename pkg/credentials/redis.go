package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/grocerycart/pkg/redis"
)

// Redis persists credentials under namespaced keys.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, name string) (string, error) {
	value, err := r.client.Get(ctx, r.client.CredentialKey(name))
	if errors.Is(err, redis.ErrNil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", name, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, name, value string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.client.CredentialKey(name), value, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.client.CredentialKey(name)); err != nil {
		return fmt.Errorf("redis del %s: %w", name, err)
	}
	return nil
}
