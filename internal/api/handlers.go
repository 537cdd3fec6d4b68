package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smc-trading-dashboard/internal/ai"
	"smc-trading-dashboard/internal/analysis"
	"smc-trading-dashboard/internal/auth"
	"smc-trading-dashboard/internal/patterns"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleStatus aggregates the subsystem states into one dashboard snapshot.
func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"clients":        s.hub.ClientCount(),
	}
	if s.bot != nil {
		resp["bot"] = s.bot.Status()
	}
	if s.risk != nil {
		resp["risk"] = s.risk.Status()
	}
	if s.cache != nil {
		resp["cache_healthy"] = s.cache.IsHealthy()
	}
	resp["ai_enabled"] = s.advisor != nil && s.advisor.Enabled()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogin(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		errorResponse(c, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := s.authService.Login(creds)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) handleTicker(c *gin.Context) {
	symbol := c.Param("symbol")
	ticker, err := s.market.Get24hrTicker(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch ticker")
		return
	}
	c.JSON(http.StatusOK, ticker)
}

func (s *Server) handleBalances(c *gin.Context) {
	balances, err := s.market.GetBalances(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch balances")
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// handleKlines proxies candle data to the frontend chart, with pattern
// annotations for the most recent bar.
func (s *Server) handleKlines(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", s.cfg.BotConfig.DefaultSymbol)
	interval := c.DefaultQuery("interval", "1h")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "500"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 500
	}

	candles, err := s.market.GetKlines(c.Request.Context(), symbol, interval, 0, 0, limit)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch klines")
		return
	}

	resp := gin.H{
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
	}
	if last := len(candles) - 1; last >= patterns.WarmupBars {
		resp["patterns"] = patterns.Detect(candles, last)
		resp["atr"] = analysis.ATR(candles, last, analysis.DefaultATRPeriod)
	}
	c.JSON(http.StatusOK, resp)
}

// handleAIDecision fetches fresh market context for a symbol and asks the
// LLM advisor for a verdict.
func (s *Server) handleAIDecision(c *gin.Context) {
	if s.advisor == nil || !s.advisor.Enabled() {
		errorResponse(c, http.StatusServiceUnavailable, "ai advisor is not configured")
		return
	}

	var req struct {
		Symbol    string `json:"symbol" binding:"required"`
		Timeframe string `json:"timeframe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = "1h"
	}

	ctx := c.Request.Context()
	candles, err := s.market.GetKlines(ctx, req.Symbol, req.Timeframe, 0, 0, 100)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch market data")
		return
	}
	last := len(candles) - 1
	if last < patterns.WarmupBars {
		errorResponse(c, http.StatusUnprocessableEntity, "not enough market data for analysis")
		return
	}

	setup := ai.Setup{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Price:     candles[last].Close,
		ATR:       analysis.ATR(candles, last, analysis.DefaultATRPeriod),
		Patterns:  patterns.Detect(candles, last),
	}
	if ticker, err := s.market.Get24hrTicker(ctx, req.Symbol); err == nil {
		setup.Change24h = ticker.PriceChangePercent
	}
	if s.risk != nil {
		status := s.risk.Status()
		setup.DailyPnl = status.RealizedPnl
		setup.OpenRiskOK = !status.TradingDisabled
	} else {
		setup.OpenRiskOK = true
	}

	decision, err := s.advisor.Decide(ctx, setup)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "ai decision failed")
		return
	}
	c.JSON(http.StatusOK, decision)
}
