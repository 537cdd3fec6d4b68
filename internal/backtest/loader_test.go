package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"smc-trading-dashboard/internal/binance"
)

func mockCandles(n int) []binance.Kline {
	candles := make([]binance.Kline, n)
	for i := range candles {
		candles[i] = binance.Kline{OpenTime: int64(i) * 3600_000, Open: 100, High: 101, Low: 99, Close: 100}
	}
	return candles
}

func TestFetchHistoricalCandles(t *testing.T) {
	mock := &binance.MockClient{Klines: mockCandles(100)}

	candles, err := FetchHistoricalCandles(context.Background(), mock, "BTCUSDT", "4h", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 100 {
		t.Errorf("expected 100 candles, got %d", len(candles))
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("expected a single fetch attempt, got %d", len(mock.Calls))
	}
	call := mock.Calls[0]
	if call.Symbol != "BTCUSDT" || call.Interval != "4h" {
		t.Errorf("unexpected call %+v", call)
	}
	if call.Limit != 1000 {
		t.Errorf("expected limit 1000, got %d", call.Limit)
	}

	wantSpan := int64(30) * 24 * int64(time.Hour/time.Millisecond)
	if got := call.EndTime - call.StartTime; got != wantSpan {
		t.Errorf("expected a %dms window, got %dms", wantSpan, got)
	}
}

func TestFetchHistoricalCandlesIntervalMapping(t *testing.T) {
	tests := []struct {
		timeframe string
		want      string
	}{
		{"5m", "5m"},
		{"15m", "15m"},
		{"1h", "1h"},
		{"4h", "4h"},
		{"1d", "1d"},
		{"2h", "1h"}, // unsupported intervals default to 1h
		{"", "1h"},
		{"weekly", "1h"},
	}

	for _, tt := range tests {
		mock := &binance.MockClient{Klines: mockCandles(60)}
		if _, err := FetchHistoricalCandles(context.Background(), mock, "BTCUSDT", tt.timeframe, 7); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.timeframe, err)
		}
		if got := mock.Calls[0].Interval; got != tt.want {
			t.Errorf("timeframe %q: expected interval %q, got %q", tt.timeframe, tt.want, got)
		}
	}
}

func TestFetchHistoricalCandlesFetchError(t *testing.T) {
	mock := &binance.MockClient{Err: errors.New("status 502")}

	_, err := FetchHistoricalCandles(context.Background(), mock, "BTCUSDT", "1h", 30)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
	// Single attempt, no retries.
	if len(mock.Calls) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(mock.Calls))
	}
}

func TestFetchHistoricalCandlesInsufficientData(t *testing.T) {
	mock := &binance.MockClient{Klines: mockCandles(49)}

	_, err := FetchHistoricalCandles(context.Background(), mock, "NEWCOIN", "1d", 90)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunnerValidation(t *testing.T) {
	runner := NewRunner(&binance.MockClient{Klines: mockCandles(100)}, DefaultConfig())

	tests := []struct {
		name   string
		params Params
	}{
		{"missing symbol", Params{Timeframe: "1h", Days: 30, InitialCapital: 10000, RiskPerTrade: 2}},
		{"zero days", Params{Symbol: "BTCUSDT", Timeframe: "1h", InitialCapital: 10000, RiskPerTrade: 2}},
		{"zero capital", Params{Symbol: "BTCUSDT", Timeframe: "1h", Days: 30, RiskPerTrade: 2}},
		{"zero risk", Params{Symbol: "BTCUSDT", Timeframe: "1h", Days: 30, InitialCapital: 10000}},
	}

	for _, tt := range tests {
		if _, err := runner.Run(context.Background(), tt.params); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	runner := NewRunner(&binance.MockClient{Klines: mockCandles(100)}, DefaultConfig())

	result, err := runner.Run(context.Background(), Params{
		Symbol:         "BTCUSDT",
		Timeframe:      "1h",
		Days:           30,
		InitialCapital: 10000,
		RiskPerTrade:   2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.FinalEquity != 10000 {
		t.Errorf("flat series should end at initial capital, got %v", result.Stats.FinalEquity)
	}
}
