package authsdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStorage keeps the session in Redis so several front-end processes can
// share it. Both keys change inside one MULTI/EXEC.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage stores entries under prefix+"token" and prefix+"user".
// A zero ttl keeps them until cleared.
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisStorageFromURL parses a redis:// URL and checks the connection.
func NewRedisStorageFromURL(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStorage(client, prefix, ttl), nil
}

func (r *RedisStorage) tokenKey() string { return r.prefix + StorageKeyToken }
func (r *RedisStorage) userKey() string  { return r.prefix + StorageKeyUser }

func (r *RedisStorage) Load(ctx context.Context) (string, *User, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey(), r.userKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("redis mget failed: %w", err)
	}

	var token, rawUser string
	var hasToken, hasUser bool
	if len(vals) == 2 {
		token, hasToken = vals[0].(string)
		rawUser, hasUser = vals[1].(string)
	}
	return decodeEntries(token, hasToken, rawUser, hasUser)
}

func (r *RedisStorage) Save(ctx context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.tokenKey(), token, r.ttl)
		p.Set(ctx, r.userKey(), rawUser, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.tokenKey(), r.userKey()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
