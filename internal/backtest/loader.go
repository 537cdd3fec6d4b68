package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smc-trading-dashboard/internal/binance"
)

// Sentinel errors for the loader stage. Everything that can fail in a
// backtest fails here, before the simulation loop starts.
var (
	// ErrFetch wraps a failed market data request.
	ErrFetch = errors.New("historical data fetch failed")

	// ErrInsufficientData means fewer than MinCandles bars came back.
	// The caller should pick a shorter period or a different symbol.
	ErrInsufficientData = errors.New("insufficient historical data")
)

// maxFetchLimit is the Binance per-request kline cap.
const maxFetchLimit = 1000

var intervalMap = map[string]string{
	"5m":  "5m",
	"15m": "15m",
	"1h":  "1h",
	"4h":  "4h",
	"1d":  "1d",
}

// mapInterval translates a requested timeframe into a Binance interval
// token. Unsupported strings fall back to 1h.
func mapInterval(timeframe string) string {
	if interval, ok := intervalMap[timeframe]; ok {
		return interval
	}
	return "1h"
}

// FetchHistoricalCandles loads up to 1000 candles covering the trailing
// window of the given number of days. A single request, no retries; a
// caller that wants retry policy owns it.
func FetchHistoricalCandles(ctx context.Context, fetcher binance.KlineFetcher, symbol, timeframe string, days int) ([]binance.Kline, error) {
	endTime := time.Now().UnixMilli()
	startTime := endTime - int64(days)*24*int64(time.Hour/time.Millisecond)

	candles, err := fetcher.GetKlines(ctx, symbol, mapInterval(timeframe), startTime, endTime, maxFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	if len(candles) < MinCandles {
		return nil, fmt.Errorf("%w: got %d candles, need at least %d", ErrInsufficientData, len(candles), MinCandles)
	}

	return candles, nil
}
