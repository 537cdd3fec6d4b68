package analysis

import (
	"math"
	"testing"

	"smc-trading-dashboard/internal/binance"
)

func candlesWithRange(n int, open, high, low, close float64) []binance.Kline {
	candles := make([]binance.Kline, n)
	for i := range candles {
		candles[i] = binance.Kline{
			OpenTime: int64(i) * 3600_000,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
		}
	}
	return candles
}

func TestATRWarmupFallsBackToSingleBarRange(t *testing.T) {
	candles := candlesWithRange(30, 100, 103, 98, 100)

	for index := 0; index < DefaultATRPeriod; index++ {
		got := ATR(candles, index, DefaultATRPeriod)
		if got != 5 {
			t.Errorf("index %d: expected single-bar range 5, got %v", index, got)
		}
	}
}

func TestATRUniformSeries(t *testing.T) {
	// Identical bars: true range is always high-low because the previous
	// close sits inside the bar.
	candles := candlesWithRange(30, 100, 102, 98, 100)

	got := ATR(candles, 20, DefaultATRPeriod)
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("expected ATR 4, got %v", got)
	}
}

func TestATRGapDominatesTrueRange(t *testing.T) {
	candles := candlesWithRange(30, 100, 102, 98, 100)
	// Bar 20 gaps up: the distance from the prior close dominates the
	// bar's own range.
	candles[20] = binance.Kline{OpenTime: 20 * 3600_000, Open: 110, High: 111, Low: 109, Close: 110}

	// TR at bar 20 = max(111-109, |111-100|, |109-100|) = 11.
	// The 13 other bars in the window contribute 4 each.
	want := (13*4 + 11.0) / 14
	got := ATR(candles, 20, DefaultATRPeriod)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected ATR %v, got %v", want, got)
	}
}

func TestATRDefaultPeriod(t *testing.T) {
	candles := candlesWithRange(30, 100, 102, 98, 100)
	if got, want := ATR(candles, 20, 0), ATR(candles, 20, DefaultATRPeriod); got != want {
		t.Errorf("period 0 should use the default, got %v want %v", got, want)
	}
}

func TestATROutOfRange(t *testing.T) {
	candles := candlesWithRange(10, 100, 102, 98, 100)
	if got := ATR(candles, 50, DefaultATRPeriod); got != 0 {
		t.Errorf("out-of-range index should return 0, got %v", got)
	}
}
