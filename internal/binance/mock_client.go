package binance

import "context"

// MockClient returns canned klines for tests.
type MockClient struct {
	Klines []Kline
	Err    error

	// Calls records the arguments of each GetKlines invocation.
	Calls []MockCall
}

type MockCall struct {
	Symbol    string
	Interval  string
	StartTime int64
	EndTime   int64
	Limit     int
}

var _ KlineFetcher = (*MockClient)(nil)

func (m *MockClient) GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]Kline, error) {
	m.Calls = append(m.Calls, MockCall{
		Symbol:    symbol,
		Interval:  interval,
		StartTime: startTime,
		EndTime:   endTime,
		Limit:     limit,
	})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Klines, nil
}
