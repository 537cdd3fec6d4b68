// Package api is the HTTP surface of the dashboard: REST endpoints for
// backtests, bot control, notifications and settings, plus a websocket
// feed of live events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/ai"
	"smc-trading-dashboard/internal/auth"
	"smc-trading-dashboard/internal/backtest"
	"smc-trading-dashboard/internal/binance"
	"smc-trading-dashboard/internal/cache"
	"smc-trading-dashboard/internal/database"
	"smc-trading-dashboard/internal/events"
	"smc-trading-dashboard/internal/notification"
	"smc-trading-dashboard/internal/risk"
	"smc-trading-dashboard/internal/supervisor"
	"smc-trading-dashboard/internal/vault"
)

// MarketData is the exchange surface the handlers need. *binance.Client
// satisfies it; tests substitute a fake.
type MarketData interface {
	GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]binance.Kline, error)
	Get24hrTicker(ctx context.Context, symbol string) (*binance.Ticker24hr, error)
	GetBalances(ctx context.Context) ([]binance.Balance, error)
}

// RateLimiter is a simple fixed-window limiter per endpoint, protecting
// the Binance proxy routes from hammering the exchange API.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether another request is permitted for the key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	windowStart := time.Now().Add(-r.window)
	recent := r.requests[key][:0]
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, time.Now())
	return true
}

// Deps carries everything the server wires together. Nil fields disable
// the corresponding endpoints gracefully.
type Deps struct {
	Config        *config.Config
	Logger        zerolog.Logger
	Market        MarketData
	Runner        *backtest.Runner
	Repo          *database.Repository
	Cache         *cache.Service
	Notifications *notification.Service
	Bot           supervisor.Controller
	Risk          *risk.DailyLossMonitor
	Advisor       *ai.Advisor
	Vault         *vault.Client
	Auth          *auth.Service
	Bus           *events.EventBus
}

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
	limiter    *RateLimiter
	hub        *Hub

	cfg           *config.Config
	market        MarketData
	runner        *backtest.Runner
	repo          *database.Repository
	cache         *cache.Service
	notifications *notification.Service
	bot           supervisor.Controller
	risk          *risk.DailyLossMonitor
	advisor       *ai.Advisor
	vault         *vault.Client
	authService   *auth.Service
	bus           *events.EventBus

	startedAt time.Time
}

func NewServer(deps Deps) *Server {
	if deps.Config.ServerConfig.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:        router,
		logger:        deps.Logger.With().Str("component", "api").Logger(),
		limiter:       NewRateLimiter(120, time.Minute),
		cfg:           deps.Config,
		market:        deps.Market,
		runner:        deps.Runner,
		repo:          deps.Repo,
		cache:         deps.Cache,
		notifications: deps.Notifications,
		bot:           deps.Bot,
		risk:          deps.Risk,
		advisor:       deps.Advisor,
		vault:         deps.Vault,
		authService:   deps.Auth,
		bus:           deps.Bus,
		startedAt:     time.Now(),
	}

	s.hub = NewHub(s.logger)
	go s.hub.Run()
	if deps.Bus != nil {
		deps.Bus.SubscribeAll(s.hub.BroadcastEvent)
	}

	s.setupRoutes()
	return s
}

func (s *Server) authEnabled() bool {
	return s.authService != nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"auth_enabled": s.authEnabled()})
	})
	if s.authEnabled() {
		s.router.POST("/api/auth/login", s.handleLogin)
	}

	api := s.router.Group("/api")
	if s.authEnabled() {
		api.Use(auth.Middleware(s.authService))
	}

	api.GET("/status", s.handleStatus)

	market := api.Group("")
	market.Use(s.rateLimitMiddleware())
	{
		market.GET("/ticker/:symbol", s.handleTicker)
		market.GET("/balances", s.handleBalances)
		market.GET("/klines", s.handleKlines)
	}

	api.POST("/backtest", s.handleRunBacktest)
	api.GET("/backtest/history", s.handleBacktestHistory)
	api.GET("/backtest/history/:id", s.handleBacktestRecord)
	api.GET("/backtest/history/:id/trades", s.handleBacktestTrades)

	api.GET("/notifications", s.handleListNotifications)
	api.GET("/notifications/unread", s.handleListUnreadNotifications)
	api.POST("/notifications/:id/read", s.handleMarkNotificationRead)
	api.POST("/notifications/read-all", s.handleMarkAllNotificationsRead)

	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings/:key", s.handleSetSetting)
	api.GET("/settings/api-keys", s.handleGetAPIKeys)
	api.POST("/settings/api-keys", s.handleStoreAPIKeys)
	api.DELETE("/settings/api-keys/:exchange", s.handleDeleteAPIKeys)

	api.POST("/bot/start", s.handleBotStart)
	api.POST("/bot/stop", s.handleBotStop)
	api.GET("/bot/status", s.handleBotStatus)

	api.GET("/risk/status", s.handleRiskStatus)
	api.POST("/risk/reset", s.handleRiskReset)

	api.POST("/ai/decision", s.handleAIDecision)

	s.router.GET("/ws", s.handleWebSocket)
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.limiter.Allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"path":  path,
			})
			return
		}
		c.Next()
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerConfig.Host, s.cfg.ServerConfig.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
