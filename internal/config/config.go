package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Web       WebConfig       `yaml:"web"`
	Hexy      HexyConfig      `yaml:"hexy"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	RESTPort int    `yaml:"rest_port"`
}

type WebConfig struct {
	PublicDir string `yaml:"public_dir"`
	Gzip      bool   `yaml:"gzip"`
}

type HexyConfig struct {
	MaxSize    uint     `yaml:"max_size"`
	Palette    []string `yaml:"palette"`
	EmptyGlyph string   `yaml:"empty_glyph"`
}

type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`

	// Уровни отдельных компонентов (api, cache), перекрывают общие
	Components map[string]string `yaml:"components"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Значения по умолчанию
const (
	DefaultRESTPort    = 8088
	DefaultPublicDir   = "public"
	DefaultMaxSize     = 64
	DefaultCacheTTL    = 10 * time.Minute
	DefaultMaxEntries  = 128
	DefaultServiceName = "hexy-web"
	DefaultLogDir      = "logs"
)

// DefaultPalette: цвета команд
var DefaultPalette = []string{"#f00", "#0f0", "#00f", "#0ff", "#f0f", "#f00"}

// DefaultEmptyGlyph: подпись фишки со значением 0
const DefaultEmptyGlyph = "\U0001F542"

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// GetRESTPort возвращает REST порт с приоритетом: config -> env -> default
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "HEXY_REST_PORT", DefaultRESTPort)
}

// Addr возвращает адрес для http.Server
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetRESTPort())
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

func (c *Config) applyDefaults() {
	if c.Web.PublicDir == "" {
		c.Web.PublicDir = DefaultPublicDir
	}
	if c.Hexy.MaxSize == 0 {
		c.Hexy.MaxSize = DefaultMaxSize
	}
	if len(c.Hexy.Palette) == 0 {
		c.Hexy.Palette = append([]string(nil), DefaultPalette...)
	}
	if c.Hexy.EmptyGlyph == "" {
		c.Hexy.EmptyGlyph = DefaultEmptyGlyph
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = DefaultMaxEntries
	}
	if c.Cache.RedisURL == "" {
		c.Cache.RedisURL = os.Getenv("HEXY_REDIS_URL")
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = DefaultLogDir
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "info"
	}
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "debug"
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", берёт путь из ENV HEXY_CONFIG; если и он пуст, возвращает значения по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("HEXY_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}
