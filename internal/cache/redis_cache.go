package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/hexy-web/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	MaxTTL   time.Duration
}

// ParseRedisURL разбирает строку вида redis://[:password@]host:port/db
func ParseRedisURL(url string) (RedisConfig, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid redis url: %w", err)
	}
	return RedisConfig{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}, nil
}

// RedisCache реализует CacheRepo поверх Redis.
// Используется, когда несколько экземпляров сервиса должны делить отрисованные доски.
type RedisCache struct {
	client *redis.Client
	config RedisConfig

	totalRequests int64
	hits          int64
	misses        int64
}

// NewRedisCache подключается к Redis и проверяет соединение.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetCacheLogger().Info("Redis cache initialized: %s", config.Addr)
	return &RedisCache{client: rdb, config: config}, nil
}

// Backend возвращает имя хранилища. Обращения к Redis не выполняется.
func (r *RedisCache) Backend() string { return "redis" }

// Get получает значение по ключу из Redis.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt64(&r.totalRequests, 1)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.hits, 1)
		return val, nil
	}

	atomic.AddInt64(&r.misses, 1)
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	logging.GetCacheLogger().Error("Redis Get error for key %s: %v", key, err)
	return nil, fmt.Errorf("redis get error: %w", err)
}

// Set сохраняет значение в Redis. TTL ограничен сверху MaxTTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.GetCacheLogger().Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete удаляет ключ из Redis.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		logging.GetCacheLogger().Error("Error closing Redis connection: %v", err)
		return err
	}
	logging.GetCacheLogger().Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
// Ключи считаются итерацией SCAN, чтобы не блокировать общий Redis командой KEYS.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	total := atomic.LoadInt64(&r.totalRequests)
	hits := atomic.LoadInt64(&r.hits)

	metrics := &CacheMetrics{
		Backend:       r.Backend(),
		TotalRequests: total,
		CacheHits:     hits,
		CacheMisses:   atomic.LoadInt64(&r.misses),
		HitRatio:      hitRatio(hits, total),
		LastUpdate:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if keys, err := r.countKeys(ctx); err == nil {
		metrics.TotalKeys = keys
	} else {
		logging.GetCacheLogger().Warn("Redis key scan failed: %v", err)
	}

	return metrics
}

func (r *RedisCache) countKeys(ctx context.Context) (int64, error) {
	var n int64
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

// scanBatch: подсказка COUNT для SCAN
const scanBatch = 100
