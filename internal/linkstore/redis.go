package linkstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps links as fields of a single hash, valued with the time they
// were stored.
type Redis struct {
	client *redis.Client
	key    string
}

func OpenRedis(ctx context.Context, addr, key string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Link store ready", "backend", "redis", "addr", addr, "key", key)
	return &Redis{client: client, key: key}, nil
}

func (r *Redis) Exists(ctx context.Context, link string) (bool, error) {
	ok, err := r.client.HExists(ctx, r.key, link).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return ok, nil
}

func (r *Redis) Insert(ctx context.Context, link string) error {
	if err := r.client.HSetNX(ctx, r.key, link, now()).Err(); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func (r *Redis) InsertBulk(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}

	stamp := now()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, link := range links {
			pipe.HSetNX(ctx, r.key, link, stamp)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert links: %w", err)
	}
	return nil
}

func (r *Redis) ListAll(ctx context.Context) ([]string, error) {
	links, err := r.client.HKeys(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
