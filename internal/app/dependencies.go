package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Products    domain.ProductRepository
	Carts       domain.CartRepository
	Checkout    domain.CheckoutRepository
	Orders      domain.OrderRepository
	Reviews     domain.ReviewRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository

	// PG непустой, когда приложение работает поверх PostgreSQL.
	PG *postgres.Store

	Logger *log.Entry
}

// NewDependencies собирает хранилища: PostgreSQL при заданном DSN,
// иначе in-memory для локальной разработки и тестов.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres dsn is empty, using in-memory storage")
		store := memory.NewStore()
		return &Dependencies{
			Products:    memory.NewProductRepository(store),
			Carts:       memory.NewCartRepository(store),
			Checkout:    memory.NewCheckoutRepository(store),
			Orders:      memory.NewOrderRepository(store),
			Reviews:     memory.NewReviewRepository(store),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Products:    postgres.NewProductRepository(store),
		Carts:       postgres.NewCartRepository(store),
		Checkout:    postgres.NewCheckoutRepository(store),
		Orders:      postgres.NewOrderRepository(store),
		Reviews:     postgres.NewReviewRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Timeline:    postgres.NewTimelineRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		PG:          store,
		Logger:      logger,
	}, nil
}

// Close освобождает ресурсы хранилищ.
func (d *Dependencies) Close() {
	if d == nil || d.PG == nil {
		return
	}
	if err := d.PG.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
