package main

import (
	"context"
	"fmt"

	"github.com/lunar/payments-plugin-shopware/db"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			database, err := postgres.Connect(ctx, &cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(ctx, db.Migrations); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			logger.Info("migrations applied")
			return nil
		},
	}
}
