package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/orders/internal/cache"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

// envPrefix: префикс переменных окружения. KAFKA_BROKERS читается и без префикса.
const envPrefix = "ORDERS"

// Config описывает настройки запуска приложения.
// Пустой GRPCAddr или MetricsAddr отключает соответствующий сервер.
type Config struct {
	HTTPAddr    string `yaml:"http_addr" envconfig:"HTTP_ADDR"`
	GRPCAddr    string `yaml:"grpc_addr" envconfig:"GRPC_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`

	StorageDriver       string `yaml:"storage_driver" envconfig:"STORAGE_DRIVER"`
	PostgresDSN         string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `yaml:"postgres_auto_migrate" envconfig:"POSTGRES_AUTO_MIGRATE"`
	SQLitePath          string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`

	RedisAddr string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`

	KafkaBrokers []string `yaml:"kafka_brokers" envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `yaml:"kafka_topic" envconfig:"KAFKA_TOPIC"`

	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval" envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size" envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts  int           `yaml:"outbox_max_attempts" envconfig:"OUTBOX_MAX_ATTEMPTS"`
	OutboxRetryDelay   time.Duration `yaml:"outbox_retry_delay" envconfig:"OUTBOX_RETRY_DELAY"`

	AsyncConcurrency int           `yaml:"async_concurrency" envconfig:"ASYNC_CONCURRENCY"`
	LogLevel         string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// DefaultConfig возвращает базовые настройки: in-memory хранилище, без Redis и Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		SQLitePath:          "orders.db",
		CacheTTL:            cache.DefaultTTL,
		KafkaTopic:          kafka.TopicOrderEvents,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    100 * time.Millisecond,
		AsyncConcurrency:    orders.DefaultAsyncConcurrency,
		LogLevel:            "info",
		ShutdownTimeout:     5 * time.Second,
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл
// (если path не пустой), затем переменные окружения ORDERS_*.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.KafkaBrokers = normalizeBrokers(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage"))
		}
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for sqlite storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("outbox poll interval must be > 0"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be > 0"))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox max attempts must be > 0"))
	}
	if c.OutboxRetryDelay < 0 {
		errs = append(errs, errors.New("outbox retry delay must be >= 0"))
	}
	if c.AsyncConcurrency <= 0 {
		errs = append(errs, errors.New("async concurrency must be > 0"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level возвращает уровень логирования; некорректное значение даёт info.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func normalizeBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
