package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"priceactiontalk/configs"
	"priceactiontalk/internal/infra"
)

var Version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:     "priceactiontalk",
		Short:   "PriceActionTalk API and WebSocket relay",
		Version: Version,
		RunE:    runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "optional config file (yaml, json or env)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(macroCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env, the environment and the optional config file, then configures logging
func loadConfig() (*configs.Config, error) {
	envErr := godotenv.Load()

	cfg, err := configs.Load(configFile)
	if err != nil {
		return nil, err
	}

	infra.SetupLogger(cfg.Server.Env, cfg.Debug)
	if envErr != nil {
		zlog.Debug().Msg(".env file not found, using environment variables")
	}
	return cfg, nil
}
