package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/hexy-web/internal/api"
	"github.com/annel0/hexy-web/internal/config"
	"github.com/annel0/hexy-web/internal/logging"
	"github.com/annel0/hexy-web/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $HEXY_CONFIG)")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	consoleLevel := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	fileLevel := logging.ParseLevel(cfg.Logging.FileLevel)
	logging.SetDefaultLevels(consoleLevel, fileLevel)
	loggers := logging.GetLoggerManager()
	loggers.SetDefaultLevels(consoleLevel, fileLevel)
	for component, level := range cfg.Logging.Components {
		lvl := logging.ParseLevel(level)
		loggers.SetLogLevel(component, lvl, lvl)
	}

	logging.Info("⬢ Запуск hexy-web...")
	logging.Info("📡 Конфигурация: адрес=%s, public=%s, max_size=%d, gzip=%v",
		cfg.Server.Addr(), cfg.Web.PublicDir, cfg.Hexy.MaxSize, cfg.Web.Gzip)

	// === ТЕЛЕМЕТРИЯ ===
	ctx := context.Background()
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
	}

	// === HTTP СЕРВЕР ===
	logging.Debug("Создание HTTP интеграции...")
	integration, err := api.NewServerIntegration(api.IntegrationConfig{Settings: cfg})
	if err != nil {
		logging.Error("❌ Ошибка создания HTTP интеграции: %v", err)
		log.Fatalf("❌ Ошибка создания HTTP интеграции: %v", err)
	}

	if err := integration.Start(); err != nil {
		logging.Error("❌ Ошибка запуска HTTP сервера: %v", err)
		log.Fatalf("❌ Ошибка запуска HTTP сервера: %v", err)
	}

	logging.Info("💡 Пример: curl 'http://%s/api/hexy/count?size=4'", integration.Addr())

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	if err := integration.Stop(); err != nil {
		logging.Error("❌ Ошибка остановки HTTP сервера: %v", err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
