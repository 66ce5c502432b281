package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/client"
	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/health"
	"github.com/vladislavdragonenkov/orderflow/internal/service/delivery"
	"github.com/vladislavdragonenkov/orderflow/internal/service/inventory"
	"github.com/vladislavdragonenkov/orderflow/internal/service/rewards"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/redis"
)

// runtimeDependencies — хранилища и клиенты внешних сервисов, выбранные по конфигурации.
type runtimeDependencies struct {
	orders   domain.OrderStore
	carts    domain.CartStore
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository

	products domain.ProductService
	profiles domain.ProfileService
	delivery domain.DeliveryService

	checkers map[string]health.Checker
	closers  []func() error
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *runtimeDependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]health.Checker)}

	if err := initOrderStorage(ctx, cfg, deps, logger); err != nil {
		_ = deps.Close()
		return nil, err
	}
	if err := initCartStorage(ctx, cfg, deps, logger); err != nil {
		_ = deps.Close()
		return nil, err
	}
	if err := initExternalServices(cfg, deps, logger); err != nil {
		_ = deps.Close()
		return nil, err
	}
	return deps, nil
}

func initOrderStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		orders := memory.NewOrderStore()
		deps.orders = orders
		deps.outbox = memory.NewOutboxRepository()
		deps.timeline = memory.NewTimelineRepository()
		deps.checkers["order-store"] = health.NewPingChecker("order-store", orders)
		logger.Info("using in-memory order storage")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres storage requires OMS_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		deps.closers = append(deps.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		deps.orders = postgres.NewOrderStore(store)
		deps.outbox = postgres.NewOutboxRepository(store)
		deps.timeline = postgres.NewTimelineRepository(store)
		deps.checkers["order-store"] = health.NewPingChecker("order-store", store)
		logger.Info("using postgres order storage")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initCartStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch cfg.CartDriver {
	case CartDriverMemory, "":
		deps.carts = memory.NewCartStore()
		logger.Info("using in-memory cart storage")
		return nil

	case CartDriverRedis:
		carts, err := redis.NewCartStore(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("open redis cart store: %w", err)
		}
		deps.closers = append(deps.closers, carts.Close)
		deps.carts = carts
		deps.checkers["cart-store"] = health.NewPingChecker("cart-store", carts)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis cart storage")
		return nil

	default:
		return fmt.Errorf("unsupported cart driver %q", cfg.CartDriver)
	}
}

// initExternalServices подключает HTTP-клиенты, если заданы все адреса,
// иначе поднимает in-process заменители для локального запуска.
func initExternalServices(cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	if !cfg.UsesExternalServices() {
		deps.products = inventory.NewCatalog()
		deps.profiles = rewards.NewLedger()
		deps.delivery = delivery.NewTracker()
		logger.Warn("external service URLs are not set, using in-process product, profile and delivery services")
		return nil
	}

	clientConfig := func(baseURL, name string) client.Config {
		return client.Config{
			BaseURL:        baseURL,
			ConnectTimeout: cfg.HTTPConnectTimeout,
			ReadTimeout:    cfg.HTTPReadTimeout,
			Logger:         logger.WithField("client", name),
		}
	}

	products, err := client.NewProductClient(clientConfig(cfg.ProductServiceURL, "product"))
	if err != nil {
		return fmt.Errorf("product client: %w", err)
	}
	profiles, err := client.NewProfileClient(clientConfig(cfg.ProfileServiceURL, "profile"))
	if err != nil {
		return fmt.Errorf("profile client: %w", err)
	}
	deliveryClient, err := client.NewDeliveryClient(clientConfig(cfg.DeliveryServiceURL, "delivery"))
	if err != nil {
		return fmt.Errorf("delivery client: %w", err)
	}

	deps.products = products
	deps.profiles = profiles
	deps.delivery = deliveryClient
	return nil
}
