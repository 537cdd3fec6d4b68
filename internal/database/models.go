package database

import (
	"encoding/json"
	"time"
)

// Notification is a persisted dashboard notification.
type Notification struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Severity  string          `json:"severity"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Setting is one key/value configuration row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BacktestTrade is one simulated trade row, stored relationally so trades
// can be queried without loading the whole result payload.
type BacktestTrade struct {
	ID         int64   `json:"id"`
	ResultID   int64   `json:"resultId"`
	EntryTime  int64   `json:"entryTime"`
	ExitTime   int64   `json:"exitTime"`
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	Direction  string  `json:"direction"`
	Pnl        float64 `json:"pnl"`
	PnlPercent float64 `json:"pnlPercent"`
	Reason     string  `json:"reason"`
}

// BacktestRecord is a stored backtest run. Result holds the engine output
// verbatim; the dashboard consumes it as opaque JSON.
type BacktestRecord struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Days           int             `json:"days"`
	InitialCapital float64         `json:"initialCapital"`
	RiskPerTrade   float64         `json:"riskPerTrade"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"createdAt"`
}
