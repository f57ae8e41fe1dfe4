package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"priceactiontalk/internal/infra"
	"priceactiontalk/internal/repository"
	"priceactiontalk/internal/service"
	"priceactiontalk/internal/usecase"
)

func macroCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macro",
		Short: "Macro bias maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Store one mock heat score for every tracked currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := infra.NewDatabase(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			macro := usecase.NewMacroService(repository.NewMacroRepository(db), service.NewMockFactorGenerator(nil), nil)
			biases, err := macro.GenerateMock(ctx)
			if err != nil {
				return err
			}

			for _, b := range biases {
				fmt.Printf("%s  %+.2f\n", b.Currency, b.HeatScore)
			}
			return nil
		},
	})

	return cmd
}

