// Package patterns detects Smart Money Concepts chart patterns in
// candlestick data. Every detection is a pure function of a fixed trailing
// window at one index; nothing carries state across bars.
package patterns

import "smc-trading-dashboard/internal/binance"

// Direction of a directional pattern
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// SweepSide identifies which liquidity pool was swept
type SweepSide string

const (
	SweepHigh SweepSide = "high"
	SweepLow  SweepSide = "low"
)

const (
	// WarmupBars is the minimum index before any pattern is reported.
	WarmupBars = 20

	// sweepWindow is the trailing lookback for liquidity sweeps.
	sweepWindow = 20

	// swingWindow is the trailing lookback for break-of-structure swings.
	swingWindow = 10
)

// OrderBlock is the candle preceding an engulfing reversal.
type OrderBlock struct {
	Type  Direction `json:"type"`
	Price float64   `json:"price"`
}

// FairValueGap is a three-candle price gap left unfilled.
type FairValueGap struct {
	Type Direction `json:"type"`
	High float64   `json:"high"`
	Low  float64   `json:"low"`
}

// LiquiditySweep is a breach of a trailing extreme that closed back inside.
type LiquiditySweep struct {
	Type  SweepSide `json:"type"`
	Price float64   `json:"price"`
}

// BreakOfStructure is a close beyond the trailing swing high/low.
type BreakOfStructure struct {
	Type Direction `json:"type"`
}

// Set holds the patterns visible at one index. A nil field means the
// pattern did not fire.
type Set struct {
	OrderBlock       *OrderBlock       `json:"orderBlock"`
	FairValueGap     *FairValueGap     `json:"fvg"`
	LiquiditySweep   *LiquiditySweep   `json:"liquiditySweep"`
	BreakOfStructure *BreakOfStructure `json:"bos"`
}

// Detect evaluates all four SMC patterns at index. Indexes inside the
// warmup period return an empty set. All checks run independently;
// several can fire on the same bar.
func Detect(candles []binance.Kline, index int) Set {
	if index < WarmupBars || index >= len(candles) {
		return Set{}
	}

	current := candles[index]
	prev := candles[index-1]
	prev2 := candles[index-2]

	set := Set{}

	// Order block: engulfing reversal of the prior candle.
	if prev.Close < prev.Open && current.Close > current.Open && current.Close > prev.High {
		set.OrderBlock = &OrderBlock{Type: Bullish, Price: prev.Low}
	} else if prev.Close > prev.Open && current.Close < current.Open && current.Close < prev.Low {
		set.OrderBlock = &OrderBlock{Type: Bearish, Price: prev.High}
	}

	// Fair value gap: untouched zone between bar index-2 and the current bar.
	if prev2.High < current.Low {
		set.FairValueGap = &FairValueGap{Type: Bullish, High: current.Low, Low: prev2.High}
	} else if prev2.Low > current.High {
		set.FairValueGap = &FairValueGap{Type: Bearish, High: prev2.Low, Low: current.High}
	}

	// Liquidity sweep: wick beyond the trailing extreme, close back inside.
	highestHigh, lowestLow := trailingExtremes(candles, index, sweepWindow)
	if current.High > highestHigh && current.Close < highestHigh {
		set.LiquiditySweep = &LiquiditySweep{Type: SweepHigh, Price: highestHigh}
	} else if current.Low < lowestLow && current.Close > lowestLow {
		set.LiquiditySweep = &LiquiditySweep{Type: SweepLow, Price: lowestLow}
	}

	// Break of structure: close beyond the trailing swing.
	swingHigh, swingLow := trailingExtremes(candles, index, swingWindow)
	if current.Close > swingHigh {
		set.BreakOfStructure = &BreakOfStructure{Type: Bullish}
	} else if current.Close < swingLow {
		set.BreakOfStructure = &BreakOfStructure{Type: Bearish}
	}

	return set
}

// trailingExtremes returns the max high and min low over the window bars
// preceding index, excluding the current bar.
func trailingExtremes(candles []binance.Kline, index, window int) (float64, float64) {
	start := index - window
	if start < 0 {
		start = 0
	}

	high := candles[start].High
	low := candles[start].Low
	for i := start + 1; i < index; i++ {
		if candles[i].High > high {
			high = candles[i].High
		}
		if candles[i].Low < low {
			low = candles[i].Low
		}
	}
	return high, low
}
