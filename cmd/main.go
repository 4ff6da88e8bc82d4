package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	c "github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/config"
	shopgrpc "github.com/fjod/go_cart/shop-api/internal/grpc"
	h "github.com/fjod/go_cart/shop-api/internal/http"
	"github.com/fjod/go_cart/shop-api/internal/logger"
	"github.com/fjod/go_cart/shop-api/internal/poller"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	s "github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	healthInterval       = 10 * time.Second
	breakerFailures      = 5
	breakerOpenTimeout   = 30 * time.Second
	serverReadTimeout    = 10 * time.Second
	serverIdleTimeout    = 60 * time.Second
	serverWriteTimeSlack = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel)

	// accept W3C trace context from callers so log records carry their trace ids
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:                    cfg.MongoURI,
		Database:               cfg.MongoDBName,
		MaxPoolSize:            cfg.MongoMaxPoolSize,
		MinPoolSize:            cfg.MongoMinPoolSize,
		ConnectTimeout:         cfg.MongoConnectTimeout,
		ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
	})
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to MongoDB", "database", cfg.MongoDBName)

	if err := repository.RunMigrations(mongoDB); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewMongoUserRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	cartRepo := repository.NewMongoCartRepository(mongoDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	// product reads fall back to MongoDB while Redis is down
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Warn("redis ping failed, product cache degraded", "error", err)
	} else {
		slog.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	}

	productCache := c.NewBreakerCache(c.NewRedisCache(redisClient, cfg.ProductCacheTTL), breakerFailures, breakerOpenTimeout)
	productService := s.NewProductService(productRepo, productCache, cfg.StoreTimeout)
	cartService := s.NewCartService(cartRepo)

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.RequestTimeout, MaxRequestBodySize: cfg.MaxRequestBodySize},
		h.NewUserHandler(userRepo, cfg.StoreTimeout),
		h.NewProductHandler(productService, cfg.StoreTimeout),
		h.NewCartHandler(cartService, cfg.StoreTimeout),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: cfg.RequestTimeout + serverWriteTimeSlack,
		IdleTimeout:  serverIdleTimeout,
	}

	grpcServer, healthServer := shopgrpc.NewServer()
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		slog.Error("failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	runCtx, cancelRun := context.WithCancel(ctx)

	reporter := shopgrpc.NewHealthReporter(healthServer, func(pingCtx context.Context) error {
		return repository.Ping(pingCtx, mongoDB)
	}, healthInterval, cfg.StoreTimeout)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(runCtx)
	}()

	var checkoutPoller *poller.Poller
	if cfg.ConsumerEnabled() {
		checkoutPoller = poller.NewPoller(cartRepo, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkoutPoller.Run(runCtx)
		}()
		slog.Info("checkout consumer started", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		slog.Info("checkout consumer disabled, KAFKA_BROKERS is empty")
	}

	go func() {
		slog.Info("gRPC health server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		slog.Info("shop-api starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	cancelRun()
	if checkoutPoller != nil {
		checkoutPoller.Close()
	}
	wg.Wait()
	if err := shopgrpc.StopServer(shutdownCtx, grpcServer); err != nil {
		slog.Warn("gRPC server forced to stop", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("failed to close redis client", "error", err)
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		slog.Error("failed to disconnect from MongoDB", "error", err)
	}

	slog.Info("server exited")
}
