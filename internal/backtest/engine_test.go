package backtest

import (
	"math"
	"testing"

	"smc-trading-dashboard/internal/binance"
)

const hourMs = int64(3600_000)

// baseTime is an arbitrary fixed epoch so runs are reproducible.
const baseTime = int64(1700000000000)

// flatSeries builds n hourly candles that produce no signals: the close
// never breaks the trailing structure.
func flatSeries(n int) []binance.Kline {
	candles := make([]binance.Kline, n)
	for i := range candles {
		open := baseTime + int64(i)*hourMs
		candles[i] = binance.Kline{
			OpenTime:  open,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    10,
			CloseTime: open + hourMs - 1,
		}
	}
	return candles
}

func bar(i int, open, high, low, close float64) binance.Kline {
	t := baseTime + int64(i)*hourMs
	return binance.Kline{OpenTime: t, Open: open, High: high, Low: low, Close: close, Volume: 10, CloseTime: t + hourMs - 1}
}

// stopLossSeries triggers exactly one long entry at bar 60 (bullish order
// block + break of structure) and stops it out on bar 61.
func stopLossSeries() []binance.Kline {
	s := flatSeries(80)
	s[59] = bar(59, 100, 100.5, 98.5, 99)     // red setup candle
	s[60] = bar(60, 99, 102.5, 98.8, 102)     // engulfing close above structure
	s[61] = bar(61, 99, 99.2, 98.7, 98.9)     // dips through the stop, no fresh signal
	return s
}

func defaultParams() Params {
	return Params{
		Symbol:         "BTCUSDT",
		Timeframe:      "1h",
		Days:           30,
		InitialCapital: 10000,
		RiskPerTrade:   2,
	}
}

func TestRunNoSignals(t *testing.T) {
	result := NewEngine(DefaultConfig()).Run(flatSeries(80), defaultParams())

	if len(result.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(result.Trades))
	}
	if result.Stats.WinRate != "0.0" {
		t.Errorf("expected winRate 0.0, got %s", result.Stats.WinRate)
	}
	if result.Stats.TotalPnl != 0 {
		t.Errorf("expected zero totalPnl, got %v", result.Stats.TotalPnl)
	}
	if result.Stats.MaxDrawdown != "0.00" {
		t.Errorf("expected maxDrawdown 0.00, got %s", result.Stats.MaxDrawdown)
	}
	if result.Stats.FinalEquity != 10000 {
		t.Errorf("expected final equity 10000, got %v", result.Stats.FinalEquity)
	}
	if len(result.EquityData) == 0 {
		t.Error("expected equity points even without trades")
	}
	for _, p := range result.EquityData {
		if p.Drawdown != 0 {
			t.Errorf("flat run should have zero drawdown, got %v on %s", p.Drawdown, p.Date)
		}
	}
}

func TestRunStopLossRisksExactAmount(t *testing.T) {
	result := NewEngine(DefaultConfig()).Run(stopLossSeries(), defaultParams())

	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}

	trade := result.Trades[0]
	if trade.Direction != Long {
		t.Errorf("expected LONG, got %s", trade.Direction)
	}
	if trade.Reason != ReasonStopLoss {
		t.Errorf("expected reason %q, got %q", ReasonStopLoss, trade.Reason)
	}
	if trade.EntryPrice != 102 {
		t.Errorf("entry should be bar 60 close 102, got %v", trade.EntryPrice)
	}

	// Position sizing guarantees a stop hit loses exactly the risked
	// amount: 2% of 10000.
	if math.Abs(trade.Pnl-(-200)) > 1e-6 {
		t.Errorf("expected pnl -200, got %v", trade.Pnl)
	}
	if math.Abs(result.Stats.FinalEquity-9800) > 0.01 {
		t.Errorf("expected final equity 9800, got %v", result.Stats.FinalEquity)
	}
	if result.Stats.MaxDrawdown != "2.00" {
		t.Errorf("expected maxDrawdown 2.00, got %s", result.Stats.MaxDrawdown)
	}

	wantEntry := baseTime + 60*hourMs
	wantExit := baseTime + 61*hourMs
	if trade.EntryTime != wantEntry || trade.ExitTime != wantExit {
		t.Errorf("trade times: got entry %d exit %d, want %d %d", trade.EntryTime, trade.ExitTime, wantEntry, wantExit)
	}
}

// cascadeSeries closes the first long on bar 61 while also printing a
// bearish engulfing there, so the same-bar re-entry policy decides whether
// a short opens on that bar.
func cascadeSeries() []binance.Kline {
	s := flatSeries(80)
	s[59] = bar(59, 100, 100.5, 98.5, 99)
	s[60] = bar(60, 99, 102.5, 98.8, 102)
	s[61] = bar(61, 99, 99.2, 95, 96)   // stop hit + bearish engulfing below structure
	s[62] = bar(62, 97, 106, 96.5, 104) // stops the short, bullish engulfing above structure
	return s
}

func TestRunSameBarReentryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReentrySameBar = true
	withReentry := NewEngine(cfg).Run(cascadeSeries(), defaultParams())

	cfg.ReentrySameBar = false
	withoutReentry := NewEngine(cfg).Run(cascadeSeries(), defaultParams())

	if len(withReentry.Trades) != 3 {
		t.Fatalf("re-entry enabled: expected 3 trades, got %d", len(withReentry.Trades))
	}
	wantDirs := []Direction{Long, Short, Long}
	for i, trade := range withReentry.Trades {
		if trade.Direction != wantDirs[i] {
			t.Errorf("trade %d: expected %s, got %s", i, wantDirs[i], trade.Direction)
		}
	}

	// Without same-bar re-entry the short on bar 61 never opens.
	if len(withoutReentry.Trades) != 2 {
		t.Fatalf("re-entry disabled: expected 2 trades, got %d", len(withoutReentry.Trades))
	}
	for i, trade := range withoutReentry.Trades {
		if trade.Direction != Long {
			t.Errorf("trade %d: expected LONG, got %s", i, trade.Direction)
		}
	}
}

func TestRunEquityConservation(t *testing.T) {
	result := NewEngine(DefaultConfig()).Run(cascadeSeries(), defaultParams())

	sum := 0.0
	for _, trade := range result.Trades {
		sum += trade.Pnl
	}
	if math.Abs(result.Stats.FinalEquity-(10000+sum)) > 0.01 {
		t.Errorf("final equity %v != initial + trade pnl sum %v", result.Stats.FinalEquity, 10000+sum)
	}

	// Each stop loss risks exactly 2% of the equity at entry.
	equity := 10000.0
	for i, trade := range result.Trades {
		if trade.Reason != ReasonStopLoss {
			continue
		}
		want := -equity * 0.02
		if math.Abs(trade.Pnl-want) > 1e-6 {
			t.Errorf("trade %d: expected pnl %v, got %v", i, want, trade.Pnl)
		}
		equity += trade.Pnl
	}
}

func TestRunDrawdownNonNegative(t *testing.T) {
	result := NewEngine(DefaultConfig()).Run(cascadeSeries(), defaultParams())

	for _, p := range result.EquityData {
		if p.Drawdown < 0 {
			t.Errorf("drawdown must be >= 0, got %v on %s", p.Drawdown, p.Date)
		}
	}
}

func TestRunEquityDataDaily(t *testing.T) {
	result := NewEngine(DefaultConfig()).Run(flatSeries(80), defaultParams())

	seen := map[string]bool{}
	prev := ""
	for _, p := range result.EquityData {
		if seen[p.Date] {
			t.Errorf("duplicate equity point for %s", p.Date)
		}
		seen[p.Date] = true
		if prev != "" && p.Date <= prev {
			t.Errorf("equity dates out of order: %s after %s", p.Date, prev)
		}
		prev = p.Date
	}
}

func TestRunDeterministic(t *testing.T) {
	a := NewEngine(DefaultConfig()).Run(cascadeSeries(), defaultParams())
	b := NewEngine(DefaultConfig()).Run(cascadeSeries(), defaultParams())

	if len(a.Trades) != len(b.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(a.Trades), len(b.Trades))
	}
	for i := range a.Trades {
		if a.Trades[i] != b.Trades[i] {
			t.Errorf("trade %d differs between identical runs", i)
		}
	}
	if a.Stats != b.Stats {
		t.Error("stats differ between identical runs")
	}
}

func TestRunNoEntriesBeforeWarmupMargin(t *testing.T) {
	// A perfect setup before the simulation start index is never traded.
	s := flatSeries(80)
	s[29] = bar(29, 100, 100.5, 98.5, 99)
	s[30] = bar(30, 99, 102.5, 98.8, 102)

	result := NewEngine(DefaultConfig()).Run(s, defaultParams())
	if len(result.Trades) != 0 {
		t.Fatalf("expected no trades from pre-warmup signals, got %d", len(result.Trades))
	}
}
