package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	"github.com/Pesokrava/storefront/internal/pkg/cache"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/storefront/internal/repository/cache"
	"github.com/Pesokrava/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	appLogger.Info("Starting catalog worker...")

	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	redisCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.ProductTTL, cfg.Cache.ProductListTTL)
	catalogWorker := worker.NewCatalogWorker(redisCache, appLogger)

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("storefront-catalog-worker"))
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	streamConfig := events.NewStreamConfig(js, appLogger)
	if err := streamConfig.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := streamConfig.EnsureConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		for ctx.Err() == nil {
			msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || ctx.Err() != nil {
					continue
				}
				appLogger.Error("Failed to fetch messages from JetStream", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, msg := range msgs {
				if err := catalogWorker.HandleEvent(msg.Data); err != nil {
					// Redelivered with backoff until MaxDeliveryAttempts
					if nakErr := msg.Nak(); nakErr != nil {
						appLogger.Error("Failed to NAK message", nakErr)
					}
					continue
				}
				if ackErr := msg.Ack(); ackErr != nil {
					appLogger.Error("Failed to ACK message", ackErr)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	appLogger.Info("Received shutdown signal")
	stop()

	if err := sub.Unsubscribe(); err != nil {
		appLogger.Error("Failed to unsubscribe from JetStream", err)
	}

	appLogger.WithFields(map[string]any{
		"pending": catalogWorker.GetPendingCount(),
	}).Info("Stopping catalog worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalogWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Catalog worker stopped")
}
