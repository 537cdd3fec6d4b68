// Package backtest replays historical candles through the SMC strategy and
// produces trades, an equity curve and summary statistics. The whole engine
// is a pure function of (candles, parameters); it performs no I/O after the
// initial fetch and is safe to run concurrently for different requests.
package backtest

import (
	"math"
	"time"
)

// Direction of a simulated position
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Exit reasons recorded on trades. The engine only ever exits at the stop
// or the target; there are no time-based or manual exits.
const (
	ReasonStopLoss   = "Stop Loss"
	ReasonTakeProfit = "Take Profit"
)

const (
	// MinCandles is the minimum history the engine accepts: detection
	// needs a 20-bar warmup and the loop leaves a margin on top.
	MinCandles = 50

	// simulationStart is the first index the loop evaluates.
	simulationStart = 50
)

// Params are the caller-supplied backtest inputs.
type Params struct {
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe"`
	Days           int     `json:"days"`
	InitialCapital float64 `json:"initialCapital"`
	RiskPerTrade   float64 `json:"riskPerTrade"` // percent, e.g. 2 for 2%
}

// Trade is one completed simulated round trip.
type Trade struct {
	EntryTime  int64     `json:"entryTime"` // epoch ms
	ExitTime   int64     `json:"exitTime"`  // epoch ms
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Direction  Direction `json:"direction"`
	Pnl        float64   `json:"pnl"`        // signed USD
	PnlPercent float64   `json:"pnlPercent"` // pnl relative to position notional
	Reason     string    `json:"reason"`
}

// EquityPoint is the account state at the end of one simulated calendar day.
type EquityPoint struct {
	Date     string  `json:"date"` // YYYY-MM-DD, UTC
	Equity   float64 `json:"equity"`
	Drawdown float64 `json:"drawdown"` // percent below the running peak
	DailyPnl float64 `json:"dailyPnl"`
}

// Stats summarizes a finished run. Ratio fields are fixed-precision strings
// for display; internal arithmetic keeps full float precision.
type Stats struct {
	TotalTrades     int     `json:"totalTrades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         string  `json:"winRate"`
	TotalPnl        float64 `json:"totalPnl"`
	TotalPnlPercent string  `json:"totalPnlPercent"`
	MaxDrawdown     string  `json:"maxDrawdown"`
	SharpeRatio     string  `json:"sharpeRatio"`
	ProfitFactor    string  `json:"profitFactor"`
	// ProfitFactorDefined is false when there are no losing trades, in
	// which case ProfitFactor is "0.00" rather than infinity. Callers that
	// want to render the undefined ratio differently should check this
	// flag instead of comparing against zero.
	ProfitFactorDefined bool    `json:"profitFactorDefined"`
	AvgWin              string  `json:"avgWin"`
	AvgLoss             string  `json:"avgLoss"`
	FinalEquity         float64 `json:"finalEquity"`
}

// Result is the complete backtest output.
type Result struct {
	EquityData []EquityPoint `json:"equityData"`
	Trades     []Trade       `json:"trades"`
	Stats      Stats         `json:"stats"`
}

// position is the single open simulated position. At most one exists at any
// simulated instant.
type position struct {
	direction  Direction
	entryPrice float64
	entryTime  int64
	stopLoss   float64
	takeProfit float64
	size       float64 // notional USD
}

func utcDate(epochMs int64) string {
	return time.UnixMilli(epochMs).UTC().Format("2006-01-02")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
