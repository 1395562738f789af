package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/dc-replenish/internal/adapter/handler"
	"github.com/rl1809/dc-replenish/internal/adapter/peer"
	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/adapter/storage"
	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	sku           = "stress-sku"
	initialStock  = 20
	totalRequests = 50
	transferTTL   = time.Hour
)

// Many requesters race to debit one unit each from a single supplier. Exactly
// initialStock debits must be applied and the supplier must end at zero.
func main() {
	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "stock:"+sku)

	store := storage.NewRedisAdapter(rdb, transferTTL)
	if err := store.SetItem(ctx, domain.StockItem{
		SKU: sku, Name: "stress item", Price: decimal.NewFromInt(1), Quantity: initialStock,
	}); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	// Supplier node on a random local port
	stockService := service.NewStockService(store, service.ReorderPolicy{}, nil, zap.NewNop(), noop.NewTracerProvider().Tracer("stress"))
	grpcServer := grpc.NewServer()
	stockrpc.RegisterStockTransferServer(grpcServer, handler.NewGRPCHandler(stockService, zap.NewNop()))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()
	supplier := lis.Addr().String()

	debiter := peer.NewGRPCDebiter()
	client := peer.NewClient(debiter, storage.NewMemoryAdapter(), 3*time.Second, peer.DefaultRetryPolicy(), zap.NewNop())
	defer client.Close()

	// Counters
	var applied, insufficient, unreachable atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			result, _ := client.DebitRemote(ctx, supplier, domain.TransferRequest{
				TransferID: uuid.NewString(),
				SKU:        sku,
				Quantity:   1,
			})
			switch result.Outcome {
			case domain.DebitApplied:
				applied.Add(1)
			case domain.DebitInsufficient:
				insufficient.Add(1)
			default:
				unreachable.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Applied:          %d\n", applied.Load())
	fmt.Printf("Insufficient:     %d\n", insufficient.Load())
	fmt.Printf("Unreachable:      %d\n", unreachable.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if applied.Load() == initialStock && insufficient.Load() == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d debits applied, %d refused\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d applied/%d insufficient, got %d/%d\n",
			initialStock, totalRequests-initialStock, applied.Load(), insufficient.Load())
	}

	item, err := store.GetItem(ctx, sku)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Supplier Stock: %d\n", item.Quantity)

	if item.Quantity == 0 {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", item.Quantity)
	}
}
