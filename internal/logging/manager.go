package logging

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
)

// levelPair: минимальные уровни консоли и файла
type levelPair struct {
	console LogLevel
	file    LogLevel
}

// LoggerManager хранит логгеры компонентов и их уровни.
// Уровни можно задать до того, как компонент создаст свой логгер:
// они применяются при создании.
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	defaults  *levelPair
	overrides map[string]levelPair
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[string]*Logger),
		overrides: make(map[string]levelPair),
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	if lv, ok := lm.levelsFor(component); ok {
		logger.SetLevels(lv.console, lv.file)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// levelsFor вызывается под lm.mu
func (lm *LoggerManager) levelsFor(component string) (levelPair, bool) {
	if lv, ok := lm.overrides[component]; ok {
		return lv, true
	}
	if lm.defaults != nil {
		return *lm.defaults, true
	}
	return levelPair{}, false
}

// MustGetLogger возвращает логгер или консольный логгер, если файл создать не удалось
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// SetDefaultLevels задаёт уровни всех компонентов без собственной настройки
func (lm *LoggerManager) SetDefaultLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.defaults = &levelPair{console: consoleLevel, file: fileLevel}
	for component, logger := range lm.loggers {
		if _, ok := lm.overrides[component]; !ok {
			logger.SetLevels(consoleLevel, fileLevel)
		}
	}
}

// SetLogLevel задаёт уровни одного компонента, в том числе ещё не созданного
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.overrides[component] = levelPair{console: consoleLevel, file: fileLevel}
	if logger, ok := lm.loggers[component]; ok {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// CloseAll закрывает все логгеры. Настройки уровней сохраняются.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents возвращает отсортированный список созданных логгеров
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// GetComponentLogger: короткий путь к MustGetLogger глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}

func GetCacheLogger() *Logger {
	return GetComponentLogger("cache")
}
