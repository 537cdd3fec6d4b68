package backtest

import (
	"context"
	"fmt"

	"smc-trading-dashboard/internal/binance"
)

// Runner binds the loader and the engine: fetch once, simulate once.
type Runner struct {
	fetcher binance.KlineFetcher
	engine  *Engine
}

func NewRunner(fetcher binance.KlineFetcher, cfg Config) *Runner {
	return &Runner{
		fetcher: fetcher,
		engine:  NewEngine(cfg),
	}
}

// Run validates the parameters, fetches the candle window and replays it.
// All failures happen before the simulation starts.
func (r *Runner) Run(ctx context.Context, params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	candles, err := FetchHistoricalCandles(ctx, r.fetcher, params.Symbol, params.Timeframe, params.Days)
	if err != nil {
		return nil, err
	}

	return r.engine.Run(candles, params), nil
}

func validateParams(params Params) error {
	if params.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if params.Days <= 0 {
		return fmt.Errorf("days must be positive")
	}
	if params.InitialCapital <= 0 {
		return fmt.Errorf("initialCapital must be positive")
	}
	if params.RiskPerTrade <= 0 {
		return fmt.Errorf("riskPerTrade must be positive")
	}
	return nil
}
