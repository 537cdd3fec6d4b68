package backtest

import (
	"fmt"
	"math"
)

// computeStats reduces the trade list and equity curve into the summary
// block. Degenerate inputs (no trades, no losses, zero variance) produce
// zeros, never errors or NaN.
func computeStats(trades []Trade, equityData []EquityPoint, finalEquity, initialCapital float64) Stats {
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, t := range trades {
		if t.Pnl > 0 {
			wins++
			winSum += t.Pnl
		} else {
			losses++
			lossSum += t.Pnl
		}
	}

	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = math.Abs(lossSum / float64(losses))
	}

	// With no losing trades the ratio is undefined; it is reported as
	// zero with ProfitFactorDefined=false rather than as infinity.
	profitFactor := 0.0
	profitFactorDefined := avgLoss > 0
	if profitFactorDefined {
		profitFactor = (avgWin * float64(wins)) / (avgLoss * float64(losses))
	}

	winRate := "0.0"
	if len(trades) > 0 {
		winRate = fmt.Sprintf("%.1f", float64(wins)/float64(len(trades))*100)
	}

	maxDrawdown := 0.0
	for _, p := range equityData {
		if p.Drawdown > maxDrawdown {
			maxDrawdown = p.Drawdown
		}
	}

	totalPnl := finalEquity - initialCapital

	return Stats{
		TotalTrades:         len(trades),
		Wins:                wins,
		Losses:              losses,
		WinRate:             winRate,
		TotalPnl:            round2(totalPnl),
		TotalPnlPercent:     fmt.Sprintf("%.2f", totalPnl/initialCapital*100),
		MaxDrawdown:         fmt.Sprintf("%.2f", maxDrawdown),
		SharpeRatio:         fmt.Sprintf("%.2f", sharpeRatio(equityData)),
		ProfitFactor:        fmt.Sprintf("%.2f", profitFactor),
		ProfitFactorDefined: profitFactorDefined,
		AvgWin:              fmt.Sprintf("%.2f", avgWin),
		AvgLoss:             fmt.Sprintf("%.2f", avgLoss),
		FinalEquity:         round2(finalEquity),
	}
}

// sharpeRatio annualizes the mean/stddev of per-day simple returns with
// √252. The first day contributes a zero return; the stddev is the
// population deviation.
func sharpeRatio(equityData []EquityPoint) float64 {
	if len(equityData) == 0 {
		return 0
	}

	returns := make([]float64, len(equityData))
	for i := 1; i < len(equityData); i++ {
		prev := equityData[i-1].Equity
		if prev != 0 {
			returns[i] = (equityData[i].Equity - prev) / prev
		}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(252)
}
