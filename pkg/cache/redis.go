// Пакет cache предоставляет обёртку над Redis для кэширования ответов на чтение
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда запрошенный ключ отсутствует в кэше.
// Позволяет отличить кэш-промах от прочих ошибок Redis
var ErrCacheMiss = errors.New("cache miss")

// RedisClient — тонкая обёртка над *redis.Client с методами Set, Get и Invalidate
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient создаёт RedisClient с заданными опциями подключения
func NewRedisClient(opts *redis.Options) *RedisClient {
	return &RedisClient{client: redis.NewClient(opts)}
}

// Set сохраняет значение под ключом key с временем жизни expiration
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get возвращает значение по ключу; отсутствие ключа (redis.Nil)
// транслируется в ErrCacheMiss, остальные ошибки отдаются как есть
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate удаляет ключ из кэша; вызывается при каждой мутации соответствующей сущности
func (r *RedisClient) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
