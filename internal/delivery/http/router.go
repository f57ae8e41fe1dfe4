package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/infra"
	custommiddleware "priceactiontalk/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler      *AuthHandler
	UserHandler      *UserHandler
	TradingHandler   *TradingHandler
	DemoHandler      *DemoHandler
	MacroHandler     *MacroHandler
	LearningHandler  *LearningHandler
	CommunityHandler *CommunityHandler
	ForumHandler     *ForumHandler
	RiskHandler      *RiskHandler
	PaymentHandler   *PaymentHandler
	StripeHandler    *StripeHandler
	HealthHandler    *HealthHandler

	Tokens      *custommiddleware.TokenService
	RateLimiter *custommiddleware.IPRateLimiter
	CORSOrigins []string
	Production  bool
}

// NewServer creates an echo instance with the validator and error handler installed
func NewServer(production bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(production)
	return e
}

// skipNoisy skips logging for probes and scrapes
func skipNoisy(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || path == "/metrics"
}

// observeRequests records request counts and latency per route
func observeRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			infra.ObserveHTTP(c.Request().Method, route, c.Response().Status, time.Since(start).Seconds())
			return nil
		}
	}
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipNoisy,
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := zlog.Info()
			if v.Status >= http.StatusInternalServerError {
				event = zlog.Error().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Msg("HTTP request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(observeRequests())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("10M"))

	// Health and metrics
	e.GET("/health", config.HealthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(infra.MetricsHandler()))

	auth := custommiddleware.AuthMiddleware(config.Tokens)

	// API group
	api := e.Group("/api", config.RateLimiter.Middleware())

	// Auth routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", config.AuthHandler.Register)
		authGroup.POST("/login", config.AuthHandler.Login)
		authGroup.POST("/logout", config.AuthHandler.Logout)
		authGroup.GET("/me", config.AuthHandler.Me, auth)
	}

	users := api.Group("/users", auth)
	{
		users.GET("/profile", config.UserHandler.GetProfile)
		users.PUT("/profile", config.UserHandler.UpdateProfile)
		users.GET("/stats", config.UserHandler.GetStats)
		users.POST("/change-password", config.UserHandler.ChangePassword)
	}

	trading := api.Group("/trading", auth)
	{
		trading.POST("", config.TradingHandler.CreateTrade)
		trading.GET("", config.TradingHandler.ListTrades)
		trading.GET("/analytics/summary", config.TradingHandler.GetAnalytics)
		trading.GET("/:id", config.TradingHandler.GetTrade)
		trading.PUT("/:id", config.TradingHandler.UpdateTrade)
		trading.DELETE("/:id", config.TradingHandler.DeleteTrade)
	}

	demo := api.Group("/demo", auth)
	{
		demo.GET("/account", config.DemoHandler.GetAccount)
		demo.POST("/account", config.DemoHandler.CreateAccount)
		demo.POST("/account/reset", config.DemoHandler.ResetAccount)
		demo.GET("/trades", config.DemoHandler.ListTrades)
		demo.POST("/trades", config.DemoHandler.PlaceTrade)
		demo.POST("/trades/:id/close", config.DemoHandler.CloseTrade)
	}

	macro := api.Group("/macro", auth)
	{
		macro.GET("/bias", config.MacroHandler.GetBias)
		macro.GET("/bias/history", config.MacroHandler.GetHistory)
		macro.POST("/bias/mock", config.MacroHandler.GenerateMock)
		macro.GET("/bias/analysis/:pair", config.MacroHandler.AnalyzePair)
	}

	learning := api.Group("/learning", auth)
	{
		learning.GET("/paths", config.LearningHandler.ListPaths)
		learning.GET("/paths/:pathId/modules", config.LearningHandler.ListModules)
		learning.GET("/progress", config.LearningHandler.ListProgress)
		learning.POST("/modules/:moduleId/progress", config.LearningHandler.RecordProgress)
	}

	community := api.Group("/community", auth)
	{
		community.GET("/challenges", config.CommunityHandler.ListChallenges)
		community.POST("/challenges/:id/join", config.CommunityHandler.JoinChallenge)
		community.GET("/challenges/:id/leaderboard", config.CommunityHandler.Leaderboard)
		community.GET("/chat/:room", config.CommunityHandler.ListMessages)
		community.POST("/chat/:room", config.CommunityHandler.PostMessage)
	}

	forum := api.Group("/forum", auth)
	{
		forum.GET("/posts", config.ForumHandler.ListPosts)
		forum.POST("/posts", config.ForumHandler.CreatePost)
		forum.GET("/posts/:id", config.ForumHandler.GetPost)
		forum.POST("/posts/:id/replies", config.ForumHandler.CreateReply)
		forum.POST("/posts/:id/vote", config.ForumHandler.Vote)
		forum.GET("/categories", config.ForumHandler.Categories)
	}

	risk := api.Group("/risk", auth)
	{
		risk.GET("/settings", config.RiskHandler.GetSettings)
		risk.PUT("/settings", config.RiskHandler.UpdateSettings)
		risk.GET("/metrics", config.RiskHandler.GetMetrics)
		risk.GET("/blockers", config.RiskHandler.ListBlockers)
		risk.POST("/blockers/:id/resolve", config.RiskHandler.ResolveBlocker)
		risk.POST("/emergency-stop", config.RiskHandler.EmergencyStop)
	}

	// Plans and webhooks are public
	payments := api.Group("/payments")
	{
		payments.GET("/plans", config.PaymentHandler.GetPlans)
		payments.POST("/webhook", config.PaymentHandler.Webhook)
		payments.GET("/subscription", config.PaymentHandler.GetSubscription, auth)
		payments.POST("/create-subscription", config.PaymentHandler.CreateSubscription, auth)
		payments.POST("/subscription-success", config.PaymentHandler.SubscriptionSuccess, auth)
		payments.POST("/cancel-subscription", config.PaymentHandler.CancelSubscription, auth)
	}

	stripe := api.Group("/stripe")
	{
		stripe.POST("/webhook", config.StripeHandler.Webhook)
		stripe.POST("/create-checkout-session", config.StripeHandler.CreateCheckoutSession, auth)
		stripe.GET("/subscription", config.StripeHandler.GetSubscription, auth)
		stripe.POST("/cancel-subscription", config.StripeHandler.CancelSubscription, auth)
	}
}
