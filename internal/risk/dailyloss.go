// Package risk enforces the account level daily loss limit. When realized
// losses for the current UTC day exceed the configured percentage the
// monitor trips an emergency stop: the bot is halted and an event is
// published for the notification pipeline.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/events"
)

// BotStopper is the slice of the supervisor the monitor needs.
type BotStopper interface {
	Stop(ctx context.Context) error
}

// Status is a snapshot of the daily loss state.
type Status struct {
	Date            string  `json:"date"`
	StartEquity     float64 `json:"start_equity"`
	RealizedPnl     float64 `json:"realized_pnl"`
	LossPercent     float64 `json:"loss_percent"`
	MaxLossPercent  float64 `json:"max_loss_percent"`
	Tripped         bool    `json:"tripped"`
	TradingDisabled bool    `json:"trading_disabled"`
}

// DailyLossMonitor tracks realized P&L per UTC day against the starting
// equity and trips once per day. It feeds from the bus: closed-trade
// events from the supervisor's log monitor update the P&L, balance
// snapshots seed the equity baseline.
type DailyLossMonitor struct {
	cfg     config.RiskConfig
	bus     *events.EventBus
	stopper BotStopper
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	day         string
	startEquity float64
	realizedPnl float64
	tripped     bool
}

func NewDailyLossMonitor(cfg config.RiskConfig, bus *events.EventBus, stopper BotStopper, logger zerolog.Logger) *DailyLossMonitor {
	m := &DailyLossMonitor{
		cfg:     cfg,
		bus:     bus,
		stopper: stopper,
		logger:  logger.With().Str("component", "risk").Logger(),
		now:     time.Now,
	}
	if bus != nil {
		bus.Subscribe(events.EventTradeClosed, func(e events.Event) {
			if pnl, ok := e.Data["pnl"].(float64); ok {
				m.RecordTrade(pnl)
			}
		})
		bus.Subscribe(events.EventBalanceUpdate, func(e events.Event) {
			if equity, ok := e.Data["equity"].(float64); ok {
				m.SetStartEquity(equity)
			}
		})
	}
	return m
}

// SetStartEquity seeds the equity baseline for the current day. Called on
// startup and whenever a fresh balance snapshot arrives before any trade.
func (m *DailyLossMonitor) SetStartEquity(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	if m.realizedPnl == 0 && !m.tripped {
		m.startEquity = equity
	}
}

// RecordTrade registers a realized P&L amount and trips the emergency
// stop when the daily loss limit is exceeded.
func (m *DailyLossMonitor) RecordTrade(pnl float64) {
	m.mu.Lock()
	m.rollDayLocked()
	m.realizedPnl += pnl
	lossPercent := m.lossPercentLocked()
	shouldTrip := !m.tripped && m.cfg.MaxDailyLossPercent > 0 && lossPercent >= m.cfg.MaxDailyLossPercent
	if shouldTrip {
		m.tripped = true
	}
	m.mu.Unlock()

	if shouldTrip {
		m.trip(lossPercent)
	}
}

// Allowed reports whether new positions may be opened.
func (m *DailyLossMonitor) Allowed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	return !m.tripped
}

// Status returns the current daily loss snapshot.
func (m *DailyLossMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	return Status{
		Date:            m.day,
		StartEquity:     m.startEquity,
		RealizedPnl:     m.realizedPnl,
		LossPercent:     m.lossPercentLocked(),
		MaxLossPercent:  m.cfg.MaxDailyLossPercent,
		Tripped:         m.tripped,
		TradingDisabled: m.tripped,
	}
}

// Reset clears the tripped state manually, without waiting for the next
// UTC day. Exposed for the admin endpoint.
func (m *DailyLossMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tripped = false
	m.realizedPnl = 0
}

// trip halts the bot and broadcasts the emergency stop.
func (m *DailyLossMonitor) trip(lossPercent float64) {
	m.logger.Error().
		Float64("loss_percent", lossPercent).
		Float64("limit_percent", m.cfg.MaxDailyLossPercent).
		Msg("daily loss limit exceeded, triggering emergency stop")

	if m.stopper != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.stopper.Stop(ctx); err != nil {
			m.logger.Error().Err(err).Msg("failed to stop bot on emergency stop")
		}
	}

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type: events.EventEmergencyStop,
			Data: map[string]interface{}{
				"reason":        "daily loss limit exceeded",
				"loss_percent":  lossPercent,
				"limit_percent": m.cfg.MaxDailyLossPercent,
			},
		})
	}
}

// rollDayLocked resets the counters when the UTC day changes. The tripped
// flag clears with the new day, matching the daily nature of the limit.
func (m *DailyLossMonitor) rollDayLocked() {
	today := m.now().UTC().Format("2006-01-02")
	if m.day == today {
		return
	}
	if m.day != "" {
		m.logger.Info().Str("previous_day", m.day).Float64("realized_pnl", m.realizedPnl).Msg("daily loss counters reset")
	}
	m.day = today
	m.startEquity += m.realizedPnl
	m.realizedPnl = 0
	m.tripped = false
}

func (m *DailyLossMonitor) lossPercentLocked() float64 {
	if m.startEquity <= 0 || m.realizedPnl >= 0 {
		return 0
	}
	return -m.realizedPnl / m.startEquity * 100
}

// String implements fmt.Stringer for log readability.
func (m *DailyLossMonitor) String() string {
	s := m.Status()
	return fmt.Sprintf("daily loss %.2f%% of %.2f (limit %.2f%%, tripped=%v)",
		s.LossPercent, s.StartEquity, s.MaxLossPercent, s.Tripped)
}
