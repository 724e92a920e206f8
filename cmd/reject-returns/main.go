// Command reject-returns rejects every pending return request.
package main

import (
	"context"
	"log"
	"time"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/pkg/database"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
	"github.com/Pesokrava/storefront/internal/usecase/returns"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithLevel(cfg.Env, cfg.LogLevel)

	db, err := database.WaitForDB(cfg, 3, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	// Bulk rejection emits no events
	service := returns.NewService(postgres.NewLedgerStore(db), nil, cfg.Commerce.ReturnWindow, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rejected, err := service.RejectAllPending(ctx)
	if err != nil {
		appLogger.Fatal("Failed to reject pending returns", err)
	}

	appLogger.Infof("Rejected %d pending returns", rejected)
}
