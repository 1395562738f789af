package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/dc-replenish/internal/adapter/directory"
	"github.com/rl1809/dc-replenish/internal/adapter/handler"
	"github.com/rl1809/dc-replenish/internal/adapter/messaging"
	"github.com/rl1809/dc-replenish/internal/adapter/observability"
	"github.com/rl1809/dc-replenish/internal/adapter/peer"
	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/adapter/storage"
	"github.com/rl1809/dc-replenish/internal/config"
	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/core/service"
	"github.com/rl1809/dc-replenish/internal/port"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.NodeName)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing and log export
	tp, shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}
	shutdownLogging, err := observability.SetupLoggingSDK(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up log export", zap.Error(err))
	}
	if cfg.OtelEndpoint != "" {
		logger = observability.NewBridgedLogger(cfg.NodeName)
		logger.Info("logger bridged to OpenTelemetry", zap.String("endpoint", cfg.OtelEndpoint))
	}
	tracer := observability.Tracer()

	// Stock store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stock store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	if mysqlStore, ok := store.(*storage.MySQLAdapter); ok {
		go purgeAppliedTransfers(ctx, mysqlStore, cfg.IdempotencyTTL, logger)
	}

	// Peer transport
	var remote port.RemoteDebiter
	switch cfg.PeerTransport {
	case config.TransportHTTP:
		remote = peer.NewHTTPDebiter(&http.Client{})
	default:
		remote = peer.NewGRPCDebiter()
	}
	policy := peer.RetryPolicy{
		MaxAttempts: cfg.PeerMaxAttempts,
		Delay:       cfg.PeerRetryDelay,
		Retryable:   peer.IsNetworkError,
	}
	peers := peer.NewClient(remote, store, cfg.PeerTimeout, policy, logger)

	// Directory and outcome notifiers
	hub := directory.NewClient(cfg.HubURL, cfg.DirectoryTimeout)
	notifiers := []port.OutcomeNotifier{hub}

	var publisher *messaging.OutcomePublisher
	if cfg.KafkaBroker != "" {
		provider := otel.GetTracerProvider()
		if tp != nil {
			provider = tp
		}
		producer, err := messaging.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic, provider)
		if err != nil {
			logger.Fatal("failed to create kafka producer", zap.Error(err))
		}
		publisher = messaging.NewOutcomePublisher(producer)
		notifiers = append(notifiers, publisher)
		logger.Info("publishing transfer outcomes to kafka",
			zap.String("broker", cfg.KafkaBroker),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	self := domain.NodeIdentity{Name: cfg.NodeName, Address: cfg.NodeAddr}

	// Services
	replenisher := service.NewReplenishService(
		service.ReplenishConfig{Self: self, NotifyTimeout: cfg.NotifyTimeout},
		hub, peers, logger, tracer, notifiers...,
	)
	dispatcher := service.NewDispatcher(replenisher, cfg.QueueSize, logger)
	stockService := service.NewStockService(store,
		service.ReorderPolicy{Threshold: cfg.ReorderThreshold, Quantity: cfg.ReorderQuantity},
		dispatcher, logger, tracer,
	)
	registration := service.NewRegistrationAgent(hub, self, cfg.DirectoryTimeout, logger)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			dispatcher.Run(ctx, id)
		}(i)
	}
	logger.Info("started replenishment workers", zap.Int("count", cfg.WorkerCount))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	stockrpc.RegisterStockTransferServer(grpcServer, handler.NewGRPCHandler(stockService, logger))

	lis, err := net.Listen("tcp", cfg.GRPCListen)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCListen), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCListen))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:    cfg.HTTPListen,
		Handler: handler.NewHTTPHandler(stockService, dispatcher, registration, logger).Routes(),
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPListen)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.HTTPListen), zap.Error(err))
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPListen))
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Both listeners are bound, so peers sent here by the HUB can connect.
	// A failure is logged and can be retried through /api/register-self.
	go registration.Register(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close the queue and wait for in-flight replenishments
	dispatcher.Close()
	wg.Wait()
	logger.Info("workers stopped")

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
	if err := peers.Close(); err != nil {
		logger.Warn("peer transport close", zap.Error(err))
	}
	closeStore()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	logger.Info("connections closed")
	logger.Sync()
	shutdownLogging(shutdownCtx)
}

// purgeAppliedTransfers expires MySQL transfer markers on the same retention
// Redis applies through key TTLs.
func purgeAppliedTransfers(ctx context.Context, store *storage.MySQLAdapter, retention time.Duration, logger *zap.Logger) {
	interval := min(retention, time.Hour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeAppliedTransfers(ctx, retention)
			if err != nil {
				logger.Warn("purge applied transfers failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("purged applied transfers", zap.Int64("rows", removed), zap.Duration("retention", retention))
			}
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.InventoryStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to mysql")
		return adapter, func() { db.Close() }, nil

	case config.StoreMemory:
		logger.Warn("using in-memory stock store, contents are lost on restart")
		return storage.NewMemoryAdapter(), func() {}, nil

	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisAdapter(rdb, cfg.IdempotencyTTL), func() { rdb.Close() }, nil
	}
}
