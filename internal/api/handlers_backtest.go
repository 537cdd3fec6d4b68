package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smc-trading-dashboard/internal/backtest"
	"smc-trading-dashboard/internal/cache"
	"smc-trading-dashboard/internal/database"
	"smc-trading-dashboard/internal/events"
)

type backtestRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	Timeframe      string  `json:"timeframe"`
	Days           int     `json:"days"`
	InitialCapital float64 `json:"initialCapital"`
	RiskPerTrade   float64 `json:"riskPerTrade"`
}

func (r *backtestRequest) applyDefaults(defaultRisk float64) {
	if r.Timeframe == "" {
		r.Timeframe = "1h"
	}
	if r.Days == 0 {
		r.Days = 30
	}
	if r.InitialCapital == 0 {
		r.InitialCapital = 10000
	}
	if r.RiskPerTrade == 0 {
		r.RiskPerTrade = defaultRisk
	}
}

// handleRunBacktest runs a simulation, serving repeated parameter sets
// from the cache. Completed runs are persisted and announced on the bus.
func (s *Server) handleRunBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}
	req.applyDefaults(s.cfg.RiskConfig.DefaultRiskPerTrade)

	ctx := c.Request.Context()
	key := cache.BacktestKey(req.Symbol, req.Timeframe, req.Days, req.InitialCapital, req.RiskPerTrade)

	if s.cache != nil {
		var cached backtest.Result
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			c.Header("X-Cache", "hit")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	params := backtest.Params{
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		Days:           req.Days,
		InitialCapital: req.InitialCapital,
		RiskPerTrade:   req.RiskPerTrade,
	}

	result, err := s.runner.Run(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, backtest.ErrInsufficientData):
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, backtest.ErrFetch):
			errorResponse(c, http.StatusBadGateway, "failed to fetch historical data")
		default:
			errorResponse(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	if s.cache != nil {
		ttl := time.Duration(s.cfg.BacktestConfig.CacheTTL) * time.Second
		s.cache.SetJSON(ctx, key, result, ttl)
	}

	if s.repo != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			rec := &database.BacktestRecord{
				Symbol:         req.Symbol,
				Timeframe:      req.Timeframe,
				Days:           req.Days,
				InitialCapital: req.InitialCapital,
				RiskPerTrade:   req.RiskPerTrade,
				Result:         payload,
			}
			id, err := s.repo.SaveBacktestRecord(ctx, rec)
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to persist backtest result")
			} else if err := s.repo.SaveBacktestTrades(ctx, id, tradeRows(result.Trades)); err != nil {
				s.logger.Error().Err(err).Int64("result_id", id).Msg("failed to persist backtest trades")
			}
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventBacktestCompleted,
			Data: map[string]interface{}{
				"symbol":       req.Symbol,
				"timeframe":    req.Timeframe,
				"days":         req.Days,
				"total_trades": result.Stats.TotalTrades,
				"total_pnl":    result.Stats.TotalPnl,
			},
		})
	}

	c.Header("X-Cache", "miss")
	c.JSON(http.StatusOK, result)
}

func tradeRows(trades []backtest.Trade) []database.BacktestTrade {
	rows := make([]database.BacktestTrade, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, database.BacktestTrade{
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Direction:  string(t.Direction),
			Pnl:        t.Pnl,
			PnlPercent: t.PnlPercent,
			Reason:     t.Reason,
		})
	}
	return rows
}

func (s *Server) handleBacktestTrades(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid id")
		return
	}

	trades, err := s.repo.ListBacktestTrades(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load backtest trades")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleBacktestHistory(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := s.repo.ListBacktestRecords(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list backtest history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

func (s *Server) handleBacktestRecord(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := s.repo.GetBacktestRecord(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "backtest result not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load backtest result")
		return
	}
	c.JSON(http.StatusOK, rec)
}
