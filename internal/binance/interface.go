package binance

import "context"

// KlineFetcher is the read-only market data surface consumed by the
// backtest loader and the API. *Client satisfies it; tests substitute
// MockClient.
type KlineFetcher interface {
	GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]Kline, error)
}

var _ KlineFetcher = (*Client)(nil)
