package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pedrohpiress/banktransaction-queue/internal/broker"
	"github.com/pedrohpiress/banktransaction-queue/internal/config"
	"github.com/pedrohpiress/banktransaction-queue/internal/events"
	"github.com/pedrohpiress/banktransaction-queue/internal/handler"
	"github.com/pedrohpiress/banktransaction-queue/internal/middleware"
	"github.com/pedrohpiress/banktransaction-queue/internal/recent"
	redisClient "github.com/pedrohpiress/banktransaction-queue/internal/redis"
)

func main() {
	// run returns before exiting so its deferred closes happen first
	if err := run(); err != nil {
		log.Printf("Transaction bridge failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Broker connection, owned for the life of the process
	brokerClient, err := broker.Dial(ctx, broker.Options{
		URL:             cfg.Broker.URL,
		Exchange:        cfg.Broker.Exchange,
		Queue:           cfg.Broker.Queue,
		DeclareTopology: cfg.Broker.DeclareTopology,
		DialTimeout:     cfg.Broker.DialTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := brokerClient.Close(); err != nil {
			log.Printf("Failed to close broker client: %v", err)
		}
	}()

	publisher := events.NewPublisher(brokerClient.Channel(), events.PublisherConfig{
		Exchange:   cfg.Broker.Exchange,
		Persistent: cfg.Broker.Persistent,
	})

	// Recent transaction log: Redis when configured, memory otherwise
	var recentLog recent.Store
	if cfg.Recent.RedisAddr != "" {
		redis, err := redisClient.NewClient(ctx, redisClient.Options{
			Addr:     cfg.Recent.RedisAddr,
			Password: cfg.Recent.RedisPassword,
			DB:       cfg.Recent.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redis.Close()
		recentLog = recent.NewRedisStore(redis.Client, cfg.Recent.Key, cfg.Recent.Limit)
	} else {
		log.Printf("REDIS_ADDR not set, keeping recent transactions in memory")
		recentLog = recent.NewMemoryStore(cfg.Recent.Limit)
	}

	transactionHandler := handler.NewTransactionHandler(publisher, recentLog, brokerClient)

	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())
	handler.RegisterRoutes(router, transactionHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Transaction bridge starting on port %s (exchange=%s queue=%s)", cfg.Port, cfg.Broker.Exchange, cfg.Broker.Queue)
	return serve(ctx, srv, cfg.ShutdownTimeout)
}

// serve runs srv until ctx is done or the listener fails. A listener failure
// is returned after the server has been shut down.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
	case err := <-errCh:
		serveErr = fmt.Errorf("failed to start server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	return serveErr
}
