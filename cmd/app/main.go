package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skybooking/api"
	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/bootstrap"
	"github.com/Domenick1991/skybooking/internal/cache"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/payment"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/checkout"
	"github.com/Domenick1991/skybooking/internal/service/flights"
	"github.com/Domenick1991/skybooking/internal/service/orders"
	"github.com/Domenick1991/skybooking/internal/service/reference"
	"github.com/Domenick1991/skybooking/internal/service/webhook"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.NewLogger("info").Fatal("load config", "error", err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("open gorm", "error", err)
	}

	m := metrics.NewMetrics(cfg.Log.MetricsNamespace, prometheus.DefaultRegisterer)

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warn("kafka is not reachable, order events will be dropped", "error", err)
	}

	if cfg.Payment.WebhookSecret == "" {
		log.Error("STRIPE_WEBHOOK_SECRET is not set, payment webhooks will be rejected")
	}
	stripeClient := payment.NewStripeClient(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret)

	flightRepo := repository.NewFlightRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	txnRepo := repository.NewTransactionRepository(pool)
	referenceRepo := repository.NewReferenceRepository(gormDB)

	flightService := flights.NewFlightService(flightRepo, redisCache, log)
	referenceService := reference.NewReferenceService(referenceRepo, log)

	orderService := orders.NewAuditedOrderService(
		orders.NewOrderService(orderRepo, flightRepo, log,
			orders.WithProducer(producer, cfg.Kafka.OrderEventsTopic),
			orders.WithMetrics(m),
		),
		log,
	)

	checkoutService := checkout.NewAuditedCheckoutService(
		checkout.NewCheckoutService(orderRepo, txnRepo, stripeClient, checkout.Settings{
			Currency:   cfg.Payment.Currency,
			TTL:        time.Duration(cfg.Booking.CheckoutTTLMinutes) * time.Minute,
			SuccessURL: cfg.Payment.SuccessURL,
			CancelURL:  cfg.Payment.CancelURL,
		}, log, checkout.WithMetrics(m)),
		log,
	)

	reconciler := webhook.NewAuditedReconciler(
		webhook.NewReconciler(stripeClient, orderRepo, log,
			webhook.WithDeduper(redisCache, time.Duration(cfg.Booking.WebhookDedupeHours)*time.Hour),
			webhook.WithProducer(producer, cfg.Kafka.OrderEventsTopic, cfg.Kafka.NotificationsTopic),
			webhook.WithMetrics(m),
		),
		log,
	)

	router := api.NewRouter(api.Handlers{
		Flights:   api.NewFlightHandler(flightService),
		Reference: api.NewReferenceHandler(referenceService),
		Orders:    api.NewOrderHandler(orderService, checkoutService),
		Webhook:   api.NewWebhookHandler(reconciler),
	}, log, prometheus.DefaultGatherer)

	if err := bootstrap.Run(ctx, cfg, router, log); err != nil {
		log.Fatal("server error", "error", err)
	}
}
