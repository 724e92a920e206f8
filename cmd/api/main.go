package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/storefront/internal/delivery/http"
	"github.com/Pesokrava/storefront/internal/delivery/http/handler"
	"github.com/Pesokrava/storefront/internal/pkg/cache"
	"github.com/Pesokrava/storefront/internal/pkg/database"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/storefront/internal/repository/cache"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
	"github.com/Pesokrava/storefront/internal/usecase/auth"
	"github.com/Pesokrava/storefront/internal/usecase/catalog"
	"github.com/Pesokrava/storefront/internal/usecase/purchase"
	"github.com/Pesokrava/storefront/internal/usecase/returns"

	_ "github.com/Pesokrava/storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description Purchases, returns and inventory for a small storefront.

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/storefront

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
// @description Use "Token <key>"

// @tag.name Products
// @tag.description Catalog browsing

// @tag.name Purchases
// @tag.description Buying products

// @tag.name Returns
// @tag.description Requesting and resolving returns

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Storefront API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if cfg.Database.AutoMigrate {
		applied, err := database.RunMigrations(db, cfg.Database.MigrationsDir)
		if err != nil {
			appLogger.Fatal("Failed to run migrations", err)
		}
		appLogger.WithFields(map[string]interface{}{
			"applied": applied,
		}).Info("Migrations up to date")
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	ledger := postgres.NewLedgerStore(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.ProductTTL,
		cfg.Cache.ProductListTTL,
	)

	catalogService := catalog.NewService(postgres.NewProductRepository(db), redisCache, appLogger)
	purchaseService := purchase.NewService(ledger, publisher, appLogger)
	returnService := returns.NewService(ledger, publisher, cfg.Commerce.ReturnWindow, appLogger)
	authService := auth.NewService(postgres.NewTokenRepository(db), cfg.Auth.TokenTTL, appLogger)

	router := httpDelivery.NewRouter(httpDelivery.Handlers{
		Products:  handler.NewProductHandler(catalogService, appLogger),
		Purchases: handler.NewPurchaseHandler(purchaseService, appLogger),
		Returns:   handler.NewReturnHandler(returnService, appLogger),
	}, authService, cfg, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
