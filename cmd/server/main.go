package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	auditService "aurum/internal/audit/service"
	"aurum/internal/auth/device"
	authService "aurum/internal/auth/service"
	"aurum/internal/auth/store/lockout"
	"aurum/internal/auth/token"
	billingService "aurum/internal/billing/service"
	"aurum/internal/catalog"
	customerService "aurum/internal/customer/service"
	inventoryService "aurum/internal/inventory/service"
	logisticsService "aurum/internal/logistics/service"
	"aurum/internal/notify"
	"aurum/internal/notify/archive"
	"aurum/internal/notify/sinks"
	"aurum/internal/platform/command"
	"aurum/internal/platform/config"
	"aurum/internal/platform/httpserver"
	"aurum/internal/platform/kafka"
	"aurum/internal/platform/logger"
	"aurum/internal/platform/metrics"
	"aurum/internal/platform/postgres"
	"aurum/internal/platform/redis"
	settingsService "aurum/internal/settings/service"
	taggingService "aurum/internal/tagging/service"
	httptransport "aurum/internal/transport/http"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the catalog, services and sinks, then serves until ctx ends.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	notifySinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher := notify.New(
		append([]notify.Option{
			notify.WithLogger(log),
			notify.WithMetrics(m),
			notify.WithBufferSize(cfg.Notify.BufferSize),
			notify.WithBatchSize(cfg.Notify.BatchSize),
			notify.WithFlushInterval(cfg.Notify.FlushInterval),
		}, notifySinks...)...,
	)

	store := catalog.New(
		catalog.WithSettings(catalog.Settings{
			GoldRate:       cfg.Business.GoldRate,
			OperationsOpen: cfg.Business.OperationsOpen,
		}),
		catalog.WithLogger(log),
		catalog.WithMetrics(m),
		catalog.WithCommitHook(dispatcher.Notify),
	)
	runner := command.NewRunner(store, command.WithLogger(log), command.WithMetrics(m))

	tokens, err := token.New(cfg.Auth.JWTSigningKey)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	if cfg.Auth.JWTSigningKey == "" {
		log.Warn("AURUM_JWT_SIGNING_KEY not set; sessions will not survive a restart")
	}
	devices := device.NewService(true)
	auth, err := authService.New(runner, tokens,
		authService.WithTokenTTL(cfg.Auth.TokenTTL),
		authService.WithLockoutStore(lockout.New(cfg.Auth.FailureWindow)),
		authService.WithDeviceService(devices),
		authService.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	if cfg.HasBootstrapOwner() {
		created, err := auth.Bootstrap(ctx, cfg.Bootstrap.OwnerUsername, cfg.Bootstrap.OwnerPassword)
		if err != nil {
			return fmt.Errorf("bootstrap owner: %w", err)
		}
		if created {
			log.Info("bootstrap owner created", "username", cfg.Bootstrap.OwnerUsername)
		}
	} else {
		log.Warn("no bootstrap owner configured; set AURUM_BOOTSTRAP_OWNER and AURUM_BOOTSTRAP_OWNER_PASSWORD")
	}

	router := httptransport.NewRouter(httptransport.Services{
		Auth:      httptransport.NewAuthHandler(auth, log),
		Customers: httptransport.NewCustomerHandler(customerService.New(runner), log),
		Inventory: httptransport.NewInventoryHandler(inventoryService.New(runner), log),
		Billing:   httptransport.NewBillingHandler(billingService.New(runner), log),
		Logistics: httptransport.NewLogisticsHandler(logisticsService.New(runner), log),
		Tagging:   httptransport.NewTaggingHandler(taggingService.New(runner), log),
		Settings:  httptransport.NewSettingsHandler(settingsService.New(runner), log),
		Audit:     httptransport.NewAuditHandler(auditService.New(runner), log),
	}, auth, log,
		httptransport.WithMetricsHandler(promhttp.Handler()),
		httptransport.WithDeviceParser(devices),
	)
	srv := httpserver.New(cfg.Addr, router)

	// The dispatcher stops only after the listener has drained.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		defer stopDispatch()
		log.Info("starting aurum", "addr", cfg.Addr, "operations_open", cfg.Business.OperationsOpen)
		return httpserver.Serve(gctx, srv, httpserver.DefaultShutdownTimeout)
	})
	return g.Wait()
}

// buildSinks connects every configured sink. The structured log sink is
// always present; Redis, Kafka and Postgres are enabled by their settings.
func buildSinks(ctx context.Context, cfg config.Server, log *slog.Logger) ([]notify.Option, func(), error) {
	opts := []notify.Option{notify.WithSink(sinks.NewLogSink(log))}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, func() {}, err
	}
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
		opts = append(opts, notify.WithSink(sinks.NewRedisSink(rdb.Client, cfg.Redis.Channel)))
		log.Info("redis notification sink enabled", "channel", cfg.Redis.Channel)
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		closeAll()
		return nil, func() {}, err
	}
	if producer != nil {
		closers = append(closers, producer.Close)
		opts = append(opts, notify.WithSink(sinks.NewKafkaSink(producer, cfg.Kafka.Topic)))
		log.Info("kafka notification sink enabled", "topic", cfg.Kafka.Topic)
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		closeAll()
		return nil, func() {}, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
		store := archive.New(db)
		if err := store.Migrate(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opts = append(opts, notify.WithSink(store))
		log.Info("postgres audit archive enabled")
	}
	return opts, closeAll, nil
}
