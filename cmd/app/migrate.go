package main

import (
	"context"
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"priceactiontalk/internal/database"
	"priceactiontalk/internal/infra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := infra.NewDatabase(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return database.RunMigrations(ctx, db)
		},
	}
}

func seedCmd() *cobra.Command {
	var catalogFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load learning paths, modules and challenges",
		Long: `Load the learning and challenge catalog into the database.

Without --file the built-in catalog is used. Rows that already exist are left untouched,
so the command can be re-run safely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			catalog, err := database.LoadCatalog(catalogFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := infra.NewDatabase(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := database.RunMigrations(ctx, db); err != nil {
				return err
			}
			if err := database.Seed(ctx, db, catalog, time.Now()); err != nil {
				return err
			}

			zlog.Info().Msg("Seed complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&catalogFile, "file", "f", "", "YAML catalog to load instead of the built-in one")

	return cmd
}
