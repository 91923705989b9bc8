package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/hexy-web/internal/cache"
	"github.com/annel0/hexy-web/internal/config"
	"github.com/annel0/hexy-web/internal/logging"
	"github.com/annel0/hexy-web/internal/render"
)

// ServerIntegration собирает зависимости и управляет жизненным циклом HTTP сервера
type ServerIntegration struct {
	settings   *config.Config
	restServer *RestServer
	cache      cache.CacheRepo
	httpServer *http.Server
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

// IntegrationConfig содержит конфигурацию для интеграции
type IntegrationConfig struct {
	Settings *config.Config

	// Кеш досок; nil: выбирается по настройкам (Redis или память)
	Cache cache.CacheRepo
}

// NewServerIntegration создает рендерер, кеш и REST сервер
func NewServerIntegration(cfg IntegrationConfig) (*ServerIntegration, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	renderer, err := render.New(render.Options{
		Palette:    settings.Hexy.Palette,
		EmptyGlyph: settings.Hexy.EmptyGlyph,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать рендерер: %w", err)
	}

	repo := cfg.Cache
	if repo == nil {
		repo = newBoardCache(settings.Cache)
	}

	ctx, cancel := context.WithCancel(context.Background())

	integration := &ServerIntegration{
		settings: settings,
		cache:    repo,
		ctx:      ctx,
		cancel:   cancel,
	}
	integration.restServer = NewRestServer(Config{
		Settings: settings,
		Renderer: renderer,
		Cache:    repo,
		Healthy:  integration.IsHealthy,
	})
	return integration, nil
}

// newBoardCache выбирает Redis при заданном redis_url, иначе кеш в памяти.
// Недоступный Redis не мешает запуску.
func newBoardCache(cfg config.CacheConfig) cache.CacheRepo {
	if cfg.RedisURL == "" {
		logging.Info("Кеш досок: память (%d записей)", cfg.MaxEntries)
		return cache.NewMemoryCache(cfg.MaxEntries)
	}

	redisCfg, err := cache.ParseRedisURL(cfg.RedisURL)
	if err == nil {
		if cfg.RedisPassword != "" {
			redisCfg.Password = cfg.RedisPassword
		}
		if cfg.RedisDB != 0 {
			redisCfg.DB = cfg.RedisDB
		}
		redisCfg.MaxTTL = cfg.TTL

		var rc *cache.RedisCache
		if rc, err = cache.NewRedisCache(redisCfg); err == nil {
			logging.Info("✅ Кеш досок: Redis %s", redisCfg.Addr)
			return rc
		}
	}

	logging.Warn("⚠️  Redis недоступен (%v), используется кеш в памяти", err)
	return cache.NewMemoryCache(cfg.MaxEntries)
}

// Start занимает порт и запускает HTTP сервер в отдельной горутине
func (si *ServerIntegration) Start() error {
	addr := si.settings.Server.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("не удалось занять адрес %s: %w", addr, err)
	}
	si.listener = listener

	si.httpServer = &http.Server{
		Handler:           si.restServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := si.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка HTTP сервера: %v", err)
		}
	}()

	logging.Info("✅ HTTP сервер запущен на http://%s", listener.Addr())
	logging.Info("📋 Доступные эндпоинты:")
	logging.Info("   GET  /                      - Главная страница")
	logging.Info("   GET  /hexy/get_board?size=N - HTML доски")
	logging.Info("   GET  /csv_mfr/              - Конструктор CSV-конвейера")
	logging.Info("   GET  /api/hexy/board?size=N - Доска в JSON")
	logging.Info("   GET  /api/hexy/hex?size=N&x=&y= - Поиск клетки")
	logging.Info("   GET  /api/stats             - Статистика сервера")
	logging.Info("   GET  /health                - Проверка состояния")
	logging.Info("   GET  /metrics               - Метрики Prometheus")

	return nil
}

// Addr возвращает фактический адрес сервера после Start
func (si *ServerIntegration) Addr() string {
	if si.listener == nil {
		return ""
	}
	return si.listener.Addr().String()
}

// Stop останавливает HTTP сервер и закрывает кеш. Повторные вызовы ничего не делают.
func (si *ServerIntegration) Stop() error {
	var stopErr error
	si.stopOnce.Do(func() {
		logging.Info("🛑 Остановка HTTP сервера...")
		// /health начинает отвечать 503 до завершения активных запросов
		si.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if si.httpServer != nil {
			if err := si.httpServer.Shutdown(ctx); err != nil {
				logging.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
				stopErr = err
			}
		}

		if err := si.cache.Close(); err != nil {
			logging.Error("❌ Ошибка при закрытии кеша: %v", err)
		}

		logging.Info("✅ HTTP сервер остановлен")
	})
	return stopErr
}

// IsHealthy сообщает, что остановка ещё не началась
func (si *ServerIntegration) IsHealthy() bool {
	select {
	case <-si.ctx.Done():
		return false
	default:
		return true
	}
}
