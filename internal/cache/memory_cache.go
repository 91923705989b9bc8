package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache: LRU-кеш в памяти процесса с TTL на запись.
// Используется, когда Redis не настроен.
type MemoryCache struct {
	mu    sync.Mutex
	items *lru.Cache[string, memoryEntry]
	now   func() time.Time

	totalRequests int64
	hits          int64
	misses        int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // нулевое значение: без истечения
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryCache создаёт кеш на maxEntries записей (минимум одна)
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	// lru.New возвращает ошибку только для размера <= 0
	items, _ := lru.New[string, memoryEntry](maxEntries)
	return &MemoryCache{
		items: items,
		now:   time.Now,
	}
}

// Backend возвращает имя хранилища
func (m *MemoryCache) Backend() string { return "memory" }

// Get получает значение по ключу
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++

	entry, ok := m.items.Get(key)
	if !ok {
		m.misses++
		return nil, ErrCacheMiss
	}
	if entry.expired(m.now()) {
		m.items.Remove(key)
		m.misses++
		return nil, ErrCacheMiss
	}

	m.hits++
	return append([]byte(nil), entry.value...), nil
}

// Set сохраняет значение; при переполнении вытесняется давно не читанная запись
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.items.Add(key, entry)
	return nil
}

// Delete удаляет ключ
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.Remove(key)
	return nil
}

// Close очищает кеш
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.Purge()
	return nil
}

// GetMetrics возвращает метрики кеша
func (m *MemoryCache) GetMetrics() *CacheMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &CacheMetrics{
		Backend:       m.Backend(),
		TotalRequests: m.totalRequests,
		CacheHits:     m.hits,
		CacheMisses:   m.misses,
		HitRatio:      hitRatio(m.hits, m.totalRequests),
		TotalKeys:     int64(m.items.Len()),
		LastUpdate:    m.now(),
	}
}
