package main

import (
	"context"
	"fmt"
	"os"

	"hdmed/adapters/postgres"
	"hdmed/app"
	"hdmed/domain/mediation"
	"hdmed/internal"
	"hdmed/internal/config"
	"hdmed/ports"
	"hdmed/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Optional: local development overrides
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := internal.DefaultLogger
	gin.SetMode(cfg.Server.GinMode)

	var repo ports.ResultsRepository
	if cfg.Database.Enabled {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(context.Background(), db); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		repo = postgres.NewResultsRepository(db)
		logger.Info("Results persistence enabled")
	} else {
		logger.Warn("DATABASE_URL not set, reports will not be persisted")
	}

	params := mediation.DefaultLearnerParams()
	params.CVFolds = cfg.Estimator.CVFolds
	service := app.NewDefaultMediationService(params)

	server := ui.NewServer(service, repo)
	return server.Run(cfg.Server.Port)
}
