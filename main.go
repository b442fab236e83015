package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appOrder "github.com/Zhima-Mochi/orderpay/internal/application/order"
	appPayment "github.com/Zhima-Mochi/orderpay/internal/application/payment"
	"github.com/Zhima-Mochi/orderpay/internal/config"
	domainOrder "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/id"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/orderpay/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/outbox"
	redisrepo "github.com/Zhima-Mochi/orderpay/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/orderpay/internal/infrastructure/sqlite"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	httppresentation "github.com/Zhima-Mochi/orderpay/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/orderpay/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const receiptWorkerName = "receipt-worker"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, err := zaplogger.New(zaplogger.Config{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		File:    cfg.App.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger.Zap())

	systemLogger := baseLogger.System()

	// No SDK provider is installed; spans stay non-recording but W3C context
	// still propagates through logs.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	counters, histograms, err := prometrics.New(prometheus.DefaultRegisterer, "").
		Register(observability.CounterSpecs, observability.HistogramSpecs)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	tel := infraobs.New(oteltrace.New(cfg.App.Name), baseLogger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderRepo, closeRepo, err := openOrderRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	paymentGateway, err := newGateway(cfg, baseLogger)
	if err != nil {
		return err
	}

	bus := outbox.NewBus(baseLogger,
		outbox.WithBuffer(cfg.Events.Buffer),
		outbox.WithConcurrency(cfg.Events.Concurrency),
	)
	receiptWorker := appPayment.NewReceiptWorker(tel)
	receiptWorker.Start(bus, workerpresentation.EventLogging(baseLogger, receiptWorkerName))
	bus.Start(ctx)

	handler := httppresentation.NewHandler(
		appOrder.NewCreateOrderUseCase(orderRepo, id.NewUUIDGenerator(), tel),
		appOrder.NewGetOrderUseCase(orderRepo, tel),
		appPayment.NewPayOrderUseCase(orderRepo, paymentGateway, bus, tel),
		tel,
	)
	router := handler.Router()
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("storage", cfg.Storage.Driver),
			observability.F("gateway", cfg.Gateway.Kind),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			systemLogger.Error("http_server_shutdown_error", observability.Err(err))
		} else {
			systemLogger.Info("http_server_stopped")
		}
		bus.Stop(shutdownCtx)
		return err
	})

	return g.Wait()
}

func openOrderRepository(ctx context.Context, cfg config.Config) (domainOrder.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		repo, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return redisrepo.NewOrderRepository(rdb, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }, nil
	default:
		return memory.NewOrderRepository(), func() {}, nil
	}
}

func newGateway(cfg config.Config, logger observability.Logger) (appPayment.Gateway, error) {
	if cfg.Gateway.Kind == config.GatewaySimulated {
		return gateway.NewSimulated(cfg.Gateway.SuccessRate, logger, gateway.WithLatency(cfg.Gateway.Latency))
	}
	return gateway.NewFake(logger), nil
}
