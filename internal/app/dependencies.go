package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/cache"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orders/internal/storage/sqlite"
)

const cacheServiceName = "orders"

// runtimeDependencies содержит инфраструктуру, выбранную конфигурацией.
type runtimeDependencies struct {
	repo       domain.OrderRepository
	outboxRepo domain.OutboxRepository
	// storage равен nil для in-memory хранилища.
	storage  health.Pinger
	cache    *cache.RedisCache
	producer *kafka.Producer

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// initRuntimeDependencies открывает хранилище, Redis и Kafka по конфигурации.
// Недоступная Kafka не мешает запуску: сервис работает без публикации событий.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps := &runtimeDependencies{}

	if err := deps.initStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		deps.cache = cache.NewRedisCache(cfg.RedisAddr, cacheServiceName)
		if err := deps.cache.Ping(ctx); err != nil {
			logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis is unavailable, cache reads will fall back to storage")
		}
		deps.repo = cache.NewOrderRepository(deps.repo, deps.cache, cfg.CacheTTL, logger.WithField("layer", "cache"))
		deps.closers = append(deps.closers, namedCloser{name: "redis", close: deps.cache.Close})
		logger.WithField("addr", cfg.RedisAddr).Info("order cache enabled")
	}

	producer, err := initKafkaProducer(cfg, logger)
	if err == nil && producer != nil {
		deps.producer = producer
	}

	return deps, nil
}

func (d *runtimeDependencies) initStorage(ctx context.Context, cfg Config, logger *log.Entry) error {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		d.repo = memory.NewOrderRepository()
		d.outboxRepo = memory.NewOutboxRepository()
		logger.Info("using in-memory storage")
		return nil

	case StorageDriverSQLite:
		if cfg.SQLitePath == "" {
			return errors.New("sqlite path is required for sqlite storage")
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite storage: %w", err)
		}
		d.repo = sqlite.NewOrderRepository(store)
		d.outboxRepo = memory.NewOutboxRepository()
		d.storage = store
		d.closers = append(d.closers, namedCloser{name: "sqlite", close: store.Close})
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres dsn is required for postgres storage")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		d.repo = postgres.NewOrderRepository(store)
		d.outboxRepo = postgres.NewOutboxRepository(store)
		d.storage = store
		d.closers = append(d.closers, namedCloser{name: "postgres", close: store.Close})
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("using postgres storage")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// registerHealthChecks добавляет проверки хранилища (критичная) и Redis (degraded).
func (d *runtimeDependencies) registerHealthChecks(h *health.Handler) {
	if d.storage != nil {
		h.RegisterChecker("storage", health.NewPingChecker("storage", d.storage, health.StatusUnhealthy))
	}
	if d.cache != nil {
		h.RegisterChecker("cache", health.NewPingChecker("cache", d.cache, health.StatusDegraded))
	}
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *runtimeDependencies) Close(logger *log.Entry) {
	closeKafka(d.producer, logger)
	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.close(); err != nil {
			logger.WithError(err).WithField("resource", c.name).Warn("failed to close resource")
		}
	}
}
