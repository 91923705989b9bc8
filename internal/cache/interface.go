package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CacheRepo определяет интерфейс кеша отрисованных фрагментов.
// Доска детерминированно зависит от размера, поэтому готовый HTML можно
// переиспользовать между запросами и узлами.
//
// Использование:
//
//	c := NewMemoryCache(128)
//	data, err := c.Get(ctx, BoardKey(4))
//	err = c.Set(ctx, BoardKey(4), html, 10*time.Minute)
type CacheRepo interface {
	// Get получает значение по ключу.
	// Возвращает ErrCacheMiss если ключ не найден или истёк.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ из кеша.
	Delete(ctx context.Context, key string) error

	// Close закрывает соединение с кешем.
	Close() error

	// Backend возвращает имя хранилища ("memory", "redis") без обращения к нему.
	Backend() string

	// GetMetrics возвращает метрики кеша. Может обращаться к хранилищу.
	GetMetrics() *CacheMetrics
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	Backend       string  `json:"backend"`
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
	TotalKeys     int64   `json:"total_keys"`

	LastUpdate time.Time `json:"last_update"`
}

// Ошибки кеша
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// keyPrefix: пространство имён ключей сервиса
const keyPrefix = "hexy:"

// BoardKey возвращает ключ HTML доски размера size
func BoardKey(size uint) string {
	return fmt.Sprintf("%sboard:html:%d", keyPrefix, size)
}

func hitRatio(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
