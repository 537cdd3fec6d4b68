// Package analysis provides rolling indicators used to size simulated
// positions.
package analysis

import (
	"math"

	"smc-trading-dashboard/internal/binance"
)

// DefaultATRPeriod is the standard ATR lookback.
const DefaultATRPeriod = 14

// ATR returns the average true range over the trailing period bars ending
// at index. True range at bar i uses the prior close, falling back to the
// bar's own open at i=0. Inside the warmup (index < period) the single-bar
// range is returned as a degraded estimate.
func ATR(candles []binance.Kline, index, period int) float64 {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if index >= len(candles) {
		return 0
	}
	if index < period {
		return candles[index].High - candles[index].Low
	}

	sum := 0.0
	for i := index - period + 1; i <= index; i++ {
		prevClose := candles[i].Open
		if i > 0 {
			prevClose = candles[i-1].Close
		}
		tr := math.Max(candles[i].High-candles[i].Low,
			math.Max(math.Abs(candles[i].High-prevClose), math.Abs(candles[i].Low-prevClose)))
		sum += tr
	}

	return sum / float64(period)
}
