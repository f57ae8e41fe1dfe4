package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"priceactiontalk/configs"
	"priceactiontalk/internal/adapter/stripe"
	"priceactiontalk/internal/database"
	httpdelivery "priceactiontalk/internal/delivery/http"
	"priceactiontalk/internal/infra"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/repository"
	"priceactiontalk/internal/service"
	"priceactiontalk/internal/usecase"
	"priceactiontalk/internal/websocket"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the WebSocket relay and the background jobs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	demoRepo := repository.NewDemoRepository(db)
	macroRepo := repository.NewMacroRepository(db)
	learningRepo := repository.NewLearningRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	forumRepo := repository.NewForumRepository(db)
	riskRepo := repository.NewRiskRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	tokens := middleware.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.ExpiresIn)

	// WebSocket relay
	var broker websocket.Broker = websocket.NewLocalBroker(1024)
	if cfg.WebSocket.Fanout == "postgres" {
		broker = websocket.NewPostgresBroker(db)
	}
	hub := websocket.NewHub(broker, tokens, userRepo, communityRepo, cfg.Server.CORSOrigins)

	// Initialize services
	quoter := service.NewMarketPriceService(nil)
	generator := service.NewMockFactorGenerator(nil)
	demoService := usecase.NewDemoTradingService(demoRepo, quoter)
	macroService := usecase.NewMacroService(macroRepo, generator, hub)
	billingService := usecase.NewBillingService(
		stripe.NewGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
		subscriptionRepo,
		userRepo,
		cfg.Stripe.BasicPriceID,
		cfg.Stripe.PremiumPriceID,
	)
	feed := websocket.NewMockFeed(quoter, generator, hub)
	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Background jobs
	scheduler := infra.NewScheduler(30 * time.Second)
	jobs := []struct {
		name string
		spec string
		fn   infra.JobFunc
	}{
		{"mock_feed", cfg.Jobs.MockFeed, feed.Tick},
		{"demo_stop_check", cfg.Jobs.DemoStopCheck, demoService.CheckStops},
		{"macro_mock_regen", cfg.Jobs.MacroMockRegen, func(ctx context.Context) error {
			_, err := macroService.GenerateMock(ctx)
			return err
		}},
		{"rate_limit_cleanup", "@every 5m", func(context.Context) error {
			limiter.Cleanup()
			return nil
		}},
	}
	for _, j := range jobs {
		if err := scheduler.AddJob(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}

	// HTTP API
	e := httpdelivery.NewServer(cfg.Server.IsProduction())
	httpdelivery.SetupRoutes(e, &httpdelivery.RouterConfig{
		AuthHandler:      httpdelivery.NewAuthHandler(userRepo, tokens, cfg.Server.IsProduction()),
		UserHandler:      httpdelivery.NewUserHandler(userRepo),
		TradingHandler:   httpdelivery.NewTradingHandler(tradeRepo),
		DemoHandler:      httpdelivery.NewDemoHandler(demoService),
		MacroHandler:     httpdelivery.NewMacroHandler(macroService),
		LearningHandler:  httpdelivery.NewLearningHandler(learningRepo, userRepo),
		CommunityHandler: httpdelivery.NewCommunityHandler(communityRepo, hub),
		ForumHandler:     httpdelivery.NewForumHandler(forumRepo),
		RiskHandler:      httpdelivery.NewRiskHandler(riskRepo, tradeRepo, demoRepo),
		PaymentHandler:   httpdelivery.NewPaymentHandler(billingService),
		StripeHandler:    httpdelivery.NewStripeHandler(billingService),
		HealthHandler:    httpdelivery.NewHealthHandler(db),
		Tokens:           tokens,
		RateLimiter:      limiter,
		CORSOrigins:      cfg.Server.CORSOrigins,
		Production:       cfg.Server.IsProduction(),
	})

	apiServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	wsServer := &http.Server{
		Addr:              ":" + cfg.WebSocket.Port,
		Handler:           websocket.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start everything
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	go func() {
		if err := hub.Run(relayCtx); err != nil {
			zlog.Error().Err(err).Msg("WebSocket relay stopped")
		}
	}()

	scheduler.Start()

	errCh := make(chan error, 2)
	go serveHTTP(apiServer, "HTTP API", errCh)
	go serveHTTP(wsServer, "WebSocket relay", errCh)

	logStartup(cfg)

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
		zlog.Info().Msg("Shutting down server...")
	case err := <-errCh:
		zlog.Error().Err(err).Msg("Server failed, shutting down")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("HTTP API forced to shutdown")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("WebSocket relay forced to shutdown")
	}
	scheduler.Stop()
	stopRelay()

	zlog.Info().Msg("Server exited gracefully")
	return nil
}

func serveHTTP(srv *http.Server, name string, errCh chan<- error) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s: %w", name, err)
	}
}

func logStartup(cfg *configs.Config) {
	zlog.Info().
		Str("env", cfg.Server.Env).
		Str("api_port", cfg.Server.Port).
		Str("ws_port", cfg.WebSocket.Port).
		Str("fanout", cfg.WebSocket.Fanout).
		Bool("billing", cfg.Stripe.SecretKey != "").
		Str("version", Version).
		Msg("PriceActionTalk started")

	if _, ok := os.LookupEnv("JWT_SECRET"); !ok && cfg.Server.IsProduction() {
		zlog.Warn().Msg("JWT_SECRET is not set, using the built-in default")
	}
}
