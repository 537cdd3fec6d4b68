package backtest

import "testing"

func TestComputeStatsMixedTrades(t *testing.T) {
	trades := []Trade{
		{Pnl: 100},
		{Pnl: 200},
		{Pnl: -50},
		{Pnl: -50},
	}
	stats := computeStats(trades, nil, 10200, 10000)

	if stats.TotalTrades != 4 || stats.Wins != 2 || stats.Losses != 2 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.WinRate != "50.0" {
		t.Errorf("expected winRate 50.0, got %s", stats.WinRate)
	}
	if stats.AvgWin != "150.00" {
		t.Errorf("expected avgWin 150.00, got %s", stats.AvgWin)
	}
	if stats.AvgLoss != "50.00" {
		t.Errorf("expected avgLoss 50.00, got %s", stats.AvgLoss)
	}
	// (150*2)/(50*2) = 3
	if stats.ProfitFactor != "3.00" || !stats.ProfitFactorDefined {
		t.Errorf("expected profitFactor 3.00 (defined), got %s defined=%v", stats.ProfitFactor, stats.ProfitFactorDefined)
	}
	if stats.TotalPnl != 200 {
		t.Errorf("expected totalPnl 200, got %v", stats.TotalPnl)
	}
	if stats.TotalPnlPercent != "2.00" {
		t.Errorf("expected totalPnlPercent 2.00, got %s", stats.TotalPnlPercent)
	}
}

func TestComputeStatsNoTrades(t *testing.T) {
	stats := computeStats(nil, nil, 10000, 10000)

	if stats.WinRate != "0.0" {
		t.Errorf("expected winRate 0.0 without trades, got %s", stats.WinRate)
	}
	if stats.TotalPnl != 0 {
		t.Errorf("expected totalPnl 0, got %v", stats.TotalPnl)
	}
	if stats.MaxDrawdown != "0.00" {
		t.Errorf("expected maxDrawdown 0.00, got %s", stats.MaxDrawdown)
	}
	if stats.SharpeRatio != "0.00" {
		t.Errorf("expected sharpeRatio 0.00, got %s", stats.SharpeRatio)
	}
}

func TestComputeStatsOnlyWinners(t *testing.T) {
	trades := []Trade{{Pnl: 100}, {Pnl: 50}}
	stats := computeStats(trades, nil, 10150, 10000)

	// With no losing trades the ratio is undefined and reported as zero,
	// flagged so callers can render it differently.
	if stats.ProfitFactor != "0.00" {
		t.Errorf("expected profitFactor 0.00, got %s", stats.ProfitFactor)
	}
	if stats.ProfitFactorDefined {
		t.Error("profit factor should be flagged undefined with zero losses")
	}
	if stats.WinRate != "100.0" {
		t.Errorf("expected winRate 100.0, got %s", stats.WinRate)
	}
	if stats.AvgLoss != "0.00" {
		t.Errorf("expected avgLoss 0.00, got %s", stats.AvgLoss)
	}
}

func TestComputeStatsMaxDrawdown(t *testing.T) {
	equityData := []EquityPoint{
		{Date: "2024-01-01", Equity: 10000, Drawdown: 0},
		{Date: "2024-01-02", Equity: 9500, Drawdown: 5},
		{Date: "2024-01-03", Equity: 9800, Drawdown: 2},
	}
	stats := computeStats(nil, equityData, 9800, 10000)

	if stats.MaxDrawdown != "5.00" {
		t.Errorf("expected maxDrawdown 5.00, got %s", stats.MaxDrawdown)
	}
}

func TestSharpeRatioZeroVariance(t *testing.T) {
	equityData := []EquityPoint{
		{Equity: 10000},
		{Equity: 10000},
		{Equity: 10000},
	}
	if got := sharpeRatio(equityData); got != 0 {
		t.Errorf("zero-variance series should have sharpe 0, got %v", got)
	}
}

func TestSharpeRatioRisingEquity(t *testing.T) {
	equityData := []EquityPoint{
		{Equity: 10000},
		{Equity: 10100},
		{Equity: 10150},
	}
	if got := sharpeRatio(equityData); got <= 0 {
		t.Errorf("monotonically rising equity should have positive sharpe, got %v", got)
	}
}
