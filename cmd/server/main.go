package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shop-service/internal/api"
	"shop-service/internal/cache"
	"shop-service/internal/database"
	"shop-service/internal/events"
	"shop-service/internal/logger"
	"shop-service/internal/metrics"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"
)

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		zlog.Fatal("Failed to connect database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, pool, zlog); err != nil {
			zlog.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	m := metrics.New()

	var products repository.ProductRepository = repository.NewProductRepository(pool)
	var productCache *cache.CachedProductRepository
	if cfg.RedisURL != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			zlog.Warn("Redis unavailable, product cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			productCache = cache.NewCachedProductRepository(products, rdb, cfg.CacheTTL, zlog)
			products = productCache
		}
	}

	opts := []service.CheckoutOption{
		service.WithOutcomeRecorder(m.RecordCheckout),
	}
	if productCache != nil {
		opts = append(opts, service.WithCommitHook(func(ctx context.Context, order *models.Order) {
			ids := make([]int64, 0, len(order.Lines))
			for _, l := range order.Lines {
				ids = append(ids, l.ProductID)
			}
			productCache.InvalidateProducts(ctx, ids...)
		}))
	}

	var wg sync.WaitGroup
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		opts = append(opts, service.WithOrderEvents(cfg.OrderEventsTopic))

		writer := events.NewWriter(brokers)
		defer writer.Close()

		relay := events.NewRelay(repository.NewOutboxRepository(pool), writer, cfg.OutboxPollInterval, zlog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	} else {
		zlog.Info("KAFKA_BROKERS not set, order events disabled")
	}

	engine := service.NewCheckoutEngine(repository.NewStore(pool), zlog, opts...)
	carts := service.NewCartService(repository.NewCartRepository(pool), products, engine, zlog)
	orders := service.NewOrderService(repository.NewOrderRepository(pool), zlog)
	users := service.NewUserService(repository.NewUserRepository(pool), zlog)

	router := api.NewRouter(api.Deps{
		Products:   products,
		Categories: repository.NewCategoryRepository(pool),
		Movements:  repository.NewStockMovementRepository(pool),
		Carts:      carts,
		Orders:     orders,
		Users:      users,
		Metrics:    m,
		Logger:     zlog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	zlog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	zlog.Info("Server stopped")
}
