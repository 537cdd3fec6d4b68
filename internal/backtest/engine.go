package backtest

import (
	"smc-trading-dashboard/internal/analysis"
	"smc-trading-dashboard/internal/binance"
	"smc-trading-dashboard/internal/patterns"
)

// Config tunes the simulation. Stop and target distances are expressed in
// ATR multiples so the reward:risk ratio is a parameter, not a constant.
type Config struct {
	StopATRMultiple   float64
	TargetATRMultiple float64
	ATRPeriod         int

	// ReentrySameBar controls whether a bar that closed a position may
	// also open a new one. The historical behavior of the strategy is
	// true; setting false enforces one action per bar.
	ReentrySameBar bool
}

// DefaultConfig is the 2:1 reward:risk setup the strategy shipped with.
func DefaultConfig() Config {
	return Config{
		StopATRMultiple:   1.5,
		TargetATRMultiple: 3.0,
		ATRPeriod:         analysis.DefaultATRPeriod,
		ReentrySameBar:    true,
	}
}

// Engine runs SMC strategy simulations over historical candles.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.StopATRMultiple <= 0 {
		cfg.StopATRMultiple = 1.5
	}
	if cfg.TargetATRMultiple <= 0 {
		cfg.TargetATRMultiple = 3.0
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = analysis.DefaultATRPeriod
	}
	return &Engine{cfg: cfg}
}

// Run replays candles bar by bar and returns the equity curve, trade list
// and summary stats. Candles must already be validated by the loader; the
// loop itself cannot fail, an empty signal stream just yields zero trades.
func (e *Engine) Run(candles []binance.Kline, params Params) *Result {
	equity := params.InitialCapital
	maxEquity := equity

	trades := []Trade{}
	equityData := []EquityPoint{}

	var pos *position
	currentDay := ""
	dailyPnl := 0.0

	for i := simulationStart; i < len(candles); i++ {
		candle := candles[i]

		// Day boundary: flush the finished day before processing the bar.
		candleDate := utcDate(candle.OpenTime)
		if candleDate != currentDay {
			if currentDay != "" {
				equityData = append(equityData, e.equityPoint(currentDay, equity, maxEquity, dailyPnl))
			}
			currentDay = candleDate
			dailyPnl = 0
		}

		closedThisBar := false

		// Exit check runs before any entry logic. Stop loss has priority
		// over take profit when both levels sit inside one bar's range.
		if pos != nil {
			if exit, ok := e.checkExit(pos, candle); ok {
				equity += exit.Pnl
				dailyPnl += exit.Pnl
				trades = append(trades, exit)
				pos = nil
				closedThisBar = true
			}
		}

		if pos == nil && (e.cfg.ReentrySameBar || !closedThisBar) {
			pos = e.checkEntry(candles, i, equity, params.RiskPerTrade)
		}

		if equity > maxEquity {
			maxEquity = equity
		}
	}

	// The loop only flushes a day once the next one begins, so the last
	// day is still pending here.
	if currentDay != "" {
		equityData = append(equityData, e.equityPoint(currentDay, equity, maxEquity, dailyPnl))
	}

	return &Result{
		EquityData: equityData,
		Trades:     trades,
		Stats:      computeStats(trades, equityData, equity, params.InitialCapital),
	}
}

func (e *Engine) equityPoint(day string, equity, maxEquity, dailyPnl float64) EquityPoint {
	drawdown := (maxEquity - equity) / maxEquity * 100
	return EquityPoint{
		Date:     day,
		Equity:   round2(equity),
		Drawdown: round2(drawdown),
		DailyPnl: round2(dailyPnl),
	}
}

// checkExit tests the current bar against the open position's stop and
// target and returns the resulting trade when either level was touched.
func (e *Engine) checkExit(pos *position, candle binance.Kline) (Trade, bool) {
	var exitPrice float64
	var reason string

	switch {
	case pos.direction == Long && candle.Low <= pos.stopLoss:
		exitPrice, reason = pos.stopLoss, ReasonStopLoss
	case pos.direction == Short && candle.High >= pos.stopLoss:
		exitPrice, reason = pos.stopLoss, ReasonStopLoss
	case pos.direction == Long && candle.High >= pos.takeProfit:
		exitPrice, reason = pos.takeProfit, ReasonTakeProfit
	case pos.direction == Short && candle.Low <= pos.takeProfit:
		exitPrice, reason = pos.takeProfit, ReasonTakeProfit
	default:
		return Trade{}, false
	}

	move := (exitPrice - pos.entryPrice) / pos.entryPrice
	if pos.direction == Short {
		move = -move
	}
	pnl := move * pos.size

	return Trade{
		EntryTime:  pos.entryTime,
		ExitTime:   candle.OpenTime,
		EntryPrice: pos.entryPrice,
		ExitPrice:  exitPrice,
		Direction:  pos.direction,
		Pnl:        pnl,
		PnlPercent: pnl / pos.size * 100,
		Reason:     reason,
	}, true
}

// checkEntry evaluates the SMC entry rules at index and opens a position
// when one fires. Long setups are evaluated before short ones; only one
// position can open per bar.
func (e *Engine) checkEntry(candles []binance.Kline, index int, equity, riskPerTrade float64) *position {
	set := patterns.Detect(candles, index)
	if set.BreakOfStructure == nil {
		// Every entry rule requires a structure break.
		return nil
	}

	atr := analysis.ATR(candles, index, e.cfg.ATRPeriod)
	if atr <= 0 {
		return nil
	}

	enterLong := set.BreakOfStructure.Type == patterns.Bullish &&
		((set.OrderBlock != nil && set.OrderBlock.Type == patterns.Bullish) ||
			(set.LiquiditySweep != nil && set.LiquiditySweep.Type == patterns.SweepLow) ||
			(set.FairValueGap != nil && set.FairValueGap.Type == patterns.Bullish))

	enterShort := set.BreakOfStructure.Type == patterns.Bearish &&
		((set.OrderBlock != nil && set.OrderBlock.Type == patterns.Bearish) ||
			(set.LiquiditySweep != nil && set.LiquiditySweep.Type == patterns.SweepHigh) ||
			(set.FairValueGap != nil && set.FairValueGap.Type == patterns.Bearish))

	if !enterLong && !enterShort {
		return nil
	}

	candle := candles[index]
	entryPrice := candle.Close

	direction := Long
	stopLoss := entryPrice - atr*e.cfg.StopATRMultiple
	takeProfit := entryPrice + atr*e.cfg.TargetATRMultiple
	if !enterLong {
		direction = Short
		stopLoss = entryPrice + atr*e.cfg.StopATRMultiple
		takeProfit = entryPrice - atr*e.cfg.TargetATRMultiple
	}

	// Notional sized so that a stop hit loses exactly riskAmount.
	riskAmount := equity * (riskPerTrade / 100)
	slDistance := atr * e.cfg.StopATRMultiple
	size := riskAmount / slDistance * entryPrice

	return &position{
		direction:  direction,
		entryPrice: entryPrice,
		entryTime:  candle.OpenTime,
		stopLoss:   stopLoss,
		takeProfit: takeProfit,
		size:       size,
	}
}
