package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/staticfiles"
)

func migrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrates the database and applies the default seeds",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			db, closeDB := getDatabase(ctx, cfg)
			defer closeDB()
			prepare(ctx, db, cfg)
			logger.Info(ctx, "database is up to date")
		},
	}
}

func createSuperuserCommand(cfg *config.Config) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Creates an active staff superuser",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			db, closeDB := getDatabase(ctx, cfg)
			defer closeDB()
			if err := database.Migrate(db); err != nil {
				logger.Fatal(ctx, "database migration failed", zap.Error(err))
			}

			user, err := database.CreateSuperuser(ctx, db, cfg, username, email, password)
			if err != nil {
				logger.Fatal(ctx, "could not create superuser", zap.Error(err))
			}
			logger.Info(ctx, "superuser created", zap.String("username", user.Username), zap.Uint("id", user.ID))
		},
	}
	cmd.Flags().StringVar(&username, "username", cfg.Bootstrap.Username, "Username")
	cmd.Flags().StringVar(&email, "email", cfg.Bootstrap.Email, "Email address")
	cmd.Flags().StringVar(&password, "password", cfg.Bootstrap.Password, "Password")

	return cmd
}

func collectStaticCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "collectstatic",
		Short: "Copies STATICFILES_DIRS into STATIC_ROOT",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			n, err := staticfiles.Collect(cfg.StaticFilesDirs, cfg.StaticRoot)
			if err != nil {
				logger.Fatal(ctx, "could not collect static files", zap.Error(err))
			}
			logger.Info(ctx, "static files collected", zap.Int("count", n), zap.String("root", cfg.StaticRoot))
		},
	}
}

func settingsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Prints the effective settings with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg.Masked())
		},
	}
}
