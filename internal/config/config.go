// Package config загружает конфигурацию: defaults, YAML файл, .env и
// переменные окружения (в порядке возрастания приоритета).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config конфигурация приложения
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Source    SourceConfig    `yaml:"source"`
	Log       LogConfig       `yaml:"log"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PathsConfig относительные пути считаются от AppDir
type PathsConfig struct {
	AppDir string `yaml:"app_dir"`
	Model  string `yaml:"model"`
	Scaler string `yaml:"scaler"`
	Data   string `yaml:"data"`
}

type SourceConfig struct {
	Kind  string      `yaml:"kind"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AnalyticsConfig struct {
	Enabled        bool    `yaml:"enabled"`
	WindowSize     int     `yaml:"window_size"`
	DriftThreshold float64 `yaml:"drift_threshold"`
	Workers        int     `yaml:"workers"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ArtifactsConfig struct {
	Watch bool `yaml:"watch"`
}

// Default значения по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Paths: PathsConfig{
			Model:  filepath.Join("model", "failure_model.json"),
			Scaler: filepath.Join("model", "scaler.json"),
			Data:   filepath.Join("data", "sensor_data.csv"),
		},
		Source: SourceConfig{
			Kind: "csv",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Stream: "sensor:readings",
			},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Analytics: AnalyticsConfig{
			Enabled:        true,
			WindowSize:     50,
			DriftThreshold: 3.0,
			Workers:        2,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Artifacts: ArtifactsConfig{
			Watch: true,
		},
	}
}

// Load загружает конфигурацию. Отсутствующий файл не считается ошибкой.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Paths.AppDir == "" {
		dir, err := executableDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Paths.AppDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv переопределяет значения из environment
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Paths.AppDir = getEnv("APP_DIR", cfg.Paths.AppDir)
	cfg.Paths.Model = getEnv("MODEL_PATH", cfg.Paths.Model)
	cfg.Paths.Scaler = getEnv("SCALER_PATH", cfg.Paths.Scaler)
	cfg.Paths.Data = getEnv("DATA_PATH", cfg.Paths.Data)

	cfg.Source.Kind = getEnv("SOURCE_KIND", cfg.Source.Kind)
	cfg.Source.Redis.Addr = getEnv("REDIS_ADDR", cfg.Source.Redis.Addr)
	cfg.Source.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Source.Redis.Password)
	cfg.Source.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Source.Redis.DB)
	cfg.Source.Redis.Stream = getEnv("REDIS_STREAM", cfg.Source.Redis.Stream)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.Analytics.Enabled = getEnvAsBool("ANALYTICS_ENABLED", cfg.Analytics.Enabled)
	cfg.Analytics.WindowSize = getEnvAsInt("WINDOW_SIZE", cfg.Analytics.WindowSize)
	cfg.Analytics.DriftThreshold = getEnvAsFloat("DRIFT_THRESHOLD", cfg.Analytics.DriftThreshold)
	cfg.Analytics.Workers = getEnvAsInt("ANALYZER_WORKERS", cfg.Analytics.Workers)

	cfg.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Artifacts.Watch = getEnvAsBool("WATCH_ARTIFACTS", cfg.Artifacts.Watch)
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}

	switch c.Source.Kind {
	case "csv":
		if c.Paths.Data == "" {
			return errors.New("data path is required for csv source")
		}
	case "redis":
		if c.Source.Redis.Addr == "" || c.Source.Redis.Stream == "" {
			return errors.New("redis addr and stream are required for redis source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	if c.Paths.Model == "" || c.Paths.Scaler == "" {
		return errors.New("model and scaler paths are required")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path)
	}

	if c.Analytics.Enabled {
		if c.Analytics.WindowSize <= 0 {
			return fmt.Errorf("window size must be positive, got %d", c.Analytics.WindowSize)
		}
		if c.Analytics.Workers <= 0 {
			return fmt.Errorf("analyzer workers must be positive, got %d", c.Analytics.Workers)
		}
		if c.Analytics.DriftThreshold <= 0 {
			return fmt.Errorf("drift threshold must be positive, got %v", c.Analytics.DriftThreshold)
		}
	}
	return nil
}

// Resolve возвращает абсолютный путь относительно AppDir
func (c Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Paths.AppDir, path)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

// getEnv получает environment variable или возвращает default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt получает environment variable как int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat получает environment variable как float64
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
