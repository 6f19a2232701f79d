package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix はRedis上のキー名の接頭辞。
const redisKeyPrefix = "storefront"

// RedisKVStore はRedisを使用したキーバリューストア。
// キーは "storefront:{scope}:{key}" の形式で保存する。
// scopeTTLが正の場合、書き込みのたびに有効期限を更新し、放置されたスコープは自然失効する。
type RedisKVStore struct {
	client   redis.UniversalClient
	scopeTTL time.Duration
}

// NewRedisKVStore はRedisKVStoreを生成する。scopeTTLが0以下の場合は有効期限を設定しない。
func NewRedisKVStore(client redis.UniversalClient, scopeTTL time.Duration) *RedisKVStore {
	return &RedisKVStore{client: client, scopeTTL: scopeTTL}
}

// Get は値を取得する。
func (r *RedisKVStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, redisKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get redis key: %w", err)
	}
	return value, true, nil
}

// Set は値を上書き保存する。
func (r *RedisKVStore) Set(ctx context.Context, scope, key, value string) error {
	ttl := r.scopeTTL
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKey(scope, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set redis key: %w", err)
	}
	return nil
}

// Delete はキーを削除する。
func (r *RedisKVStore) Delete(ctx context.Context, scope, key string) error {
	if err := r.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete redis key: %w", err)
	}
	return nil
}

// PingContext はRedis接続を確認する。
func (r *RedisKVStore) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func redisKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, scope, key)
}

// compile-time interface check
var (
	_ KVStore = (*RedisKVStore)(nil)
	_ Pinger  = (*RedisKVStore)(nil)
)
