package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run запускает приложение магазина и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	storeMetrics := metrics.NewStoreMetrics()

	cartSvc := cart.NewService(deps.Carts, deps.Products, logger.WithField("layer", "cart"))
	checkoutSvc := checkout.NewService(
		deps.Carts,
		deps.Checkout,
		deps.Outbox,
		deps.Timeline,
		logger.WithField("layer", "checkout"),
		checkout.WithLowStockThreshold(cfg.LowStockThreshold),
		checkout.WithMetrics(storeMetrics),
	)
	orderSvc := order.NewService(deps.Orders, deps.Outbox, deps.Timeline, logger.WithField("layer", "order"), storeMetrics)
	reviewSvc := review.NewService(deps.Reviews, logger.WithField("layer", "review"), storeMetrics)
	catalogSvc := catalog.NewService(deps.Products, deps.Outbox, cfg.LowStockThreshold, logger.WithField("layer", "catalog"))

	// Публикация уведомлений из outbox работает только при настроенном Kafka;
	// без брокера сообщения копятся в outbox.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicNotifications)
		dlqPublisher := kafka.NewDeadLetterPublisher(kafkaProducer)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(dlqPublisher),
		)
		go worker.Run(workerCtx)

		// Доставка уведомлений: consumer-группа читает опубликованные события
		// и разворачивает их получателю через sink.
		notifyLogger := logger.WithField("layer", "notify")
		dispatcher := notify.NewDispatcher(notify.NewLogSink(notifyLogger), notifyLogger)
		consumer, err := initNotificationConsumer(cfg.KafkaBrokers, kafkaProducer, dispatcher, logger)
		if err == nil && consumer != nil {
			if startErr := consumer.Start(workerCtx); startErr != nil {
				logger.WithError(startErr).Warn("notification consumer failed to start")
			} else {
				defer func() {
					if stopErr := consumer.Stop(); stopErr != nil {
						logger.WithError(stopErr).Warn("notification consumer stopped with error")
					}
				}()
			}
		}
	} else {
		logger.Info("kafka is not configured, outbox worker is idle")
	}

	cleanup := idempotency.NewCleanupWorker(deps.Idempotency,
		idempotency.WithLogger(logger.WithField("layer", "idempotency")),
	)
	go cleanup.Run(workerCtx)

	apiServer := httpapi.NewServer(
		catalogSvc, cartSvc, checkoutSvc, orderSvc, reviewSvc,
		deps.Idempotency, storeMetrics, logger.WithField("layer", "http"),
	)

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.PG != nil {
		healthHandler.Register("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.PG.Ping(checkCtx)
		})
	}
	healthHandler.Register("kafka", func() error {
		if cfg.KafkaBrokers != "" && kafkaProducer == nil {
			return errors.New("kafka producer is not connected")
		}
		return nil
	})

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apiServer.Handler()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		cancelWorkers()
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		cancelWorkers()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
