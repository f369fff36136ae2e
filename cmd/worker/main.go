package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/email"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/orders"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
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

	log := logger.NewLogger(cfg.Log.Level).With("component", "worker")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	m := metrics.NewMetrics(cfg.Log.MetricsNamespace, prometheus.DefaultRegisterer)
	reporter := orders.NewStaleReporter(
		repository.NewOrderRepository(pool),
		time.Duration(cfg.Booking.CheckoutTTLMinutes)*time.Minute,
		m,
		log,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
	defer consumer.Close()

	sender := email.NewSender(cfg.Worker.MailFrom, log)

	go func() {
		if err := consumer.Consume(ctx, sender.Send); err != nil {
			log.Error("consumer stopped", "error", err)
			stop()
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.StaleSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	log.Info("worker started", "topic", cfg.Kafka.NotificationsTopic)
	for {
		select {
		case <-sweepTicker.C:
			if _, err := reporter.Report(ctx); err != nil {
				log.Error("stale order sweep failed", "error", err)
			}
		case <-ctx.Done():
			log.Info("shutting down")
			return
		}
	}
}
