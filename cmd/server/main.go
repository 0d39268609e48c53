// Package main is the piriven command. It loads settings, initializes logging
// and dispatches to the serve, migrate and management subcommands.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/logger"
)

// getDatabase connects to the configured database and returns it with a
// cleanup function that closes the pool.
func getDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, func()) {
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal(ctx, "could not connect to database", zap.Error(err))
	}
	return db, func() {
		logger.Info(ctx, "closing database...")
		if err := database.Close(db); err != nil {
			logger.Warn(ctx, "could not close database", zap.Error(err))
		}
	}
}

// prepare migrates the schema and applies the seeds every process needs.
func prepare(ctx context.Context, db *gorm.DB, cfg *config.Config) {
	if err := database.Migrate(db); err != nil {
		logger.Fatal(ctx, "database migration failed", zap.Error(err))
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		logger.Fatal(ctx, "default seed failed", zap.Error(err))
	}
	if err := database.SeedAdmin(ctx, db, cfg); err != nil {
		logger.Fatal(ctx, "admin seed failed", zap.Error(err))
	}
}

func main() {
	// .env is optional in production
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("could not load settings: ", err)
	}
	if err := logger.Setup(cfg.Debug, cfg.LogLevel); err != nil {
		log.Fatal("could not set up logger: ", err)
	}

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	serve := serveCommand(cfg)
	rootCmd := &cobra.Command{
		Use:   "piriven",
		Short: "Piriven education portal backend",
		RunE:  serve.RunE,
	}
	rootCmd.AddCommand(
		serve,
		migrateCommand(cfg),
		createSuperuserCommand(cfg),
		collectStaticCommand(cfg),
		settingsCommand(cfg),
	)

	err = rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
