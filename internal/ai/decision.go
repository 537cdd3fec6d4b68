package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/internal/patterns"
)

// Action is the model's recommendation for a setup.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Setup is the market context handed to the model.
type Setup struct {
	Symbol     string       `json:"symbol"`
	Timeframe  string       `json:"timeframe"`
	Price      float64      `json:"price"`
	ATR        float64      `json:"atr"`
	Change24h  float64      `json:"change_24h"`
	Patterns   patterns.Set `json:"patterns"`
	DailyPnl   float64      `json:"daily_pnl"`
	OpenRiskOK bool         `json:"open_risk_ok"`
}

// Decision is the parsed model verdict.
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Model      string  `json:"model,omitempty"`
	LatencyMs  int64   `json:"latency_ms,omitempty"`
}

const systemPrompt = `You are a disciplined crypto trading assistant reviewing smart money concept setups.
Given a market snapshot, answer with a single JSON object and nothing else:
{"action": "BUY" | "SELL" | "HOLD", "confidence": 0.0-1.0, "reasoning": "one or two sentences"}
Prefer HOLD when the evidence is weak or signals conflict. Never invent data not present in the snapshot.`

// Advisor turns market snapshots into trade decisions via the LLM.
type Advisor struct {
	client *Client
	logger zerolog.Logger
}

func NewAdvisor(client *Client, logger zerolog.Logger) *Advisor {
	return &Advisor{
		client: client,
		logger: logger.With().Str("component", "ai").Logger(),
	}
}

// Enabled reports whether decisions can be requested.
func (a *Advisor) Enabled() bool {
	return a.client != nil && a.client.IsConfigured()
}

// Decide asks the model for a verdict on the setup.
func (a *Advisor) Decide(ctx context.Context, setup Setup) (*Decision, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("ai advisor is not configured")
	}

	start := time.Now()
	reply, err := a.client.Complete(ctx, systemPrompt, buildPrompt(setup))
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	decision, err := parseDecision(reply)
	if err != nil {
		a.logger.Warn().Str("reply", reply).Msg("unparseable llm reply")
		return nil, err
	}
	decision.LatencyMs = time.Since(start).Milliseconds()

	a.logger.Info().
		Str("symbol", setup.Symbol).
		Str("action", string(decision.Action)).
		Float64("confidence", decision.Confidence).
		Msg("ai decision")
	return decision, nil
}

// buildPrompt renders the snapshot as a compact plain text block.
func buildPrompt(setup Setup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s (%s)\n", setup.Symbol, setup.Timeframe)
	fmt.Fprintf(&b, "Price: %.4f\n", setup.Price)
	fmt.Fprintf(&b, "ATR(14): %.4f\n", setup.ATR)
	fmt.Fprintf(&b, "24h change: %.2f%%\n", setup.Change24h)
	fmt.Fprintf(&b, "Realized P&L today: %.2f\n", setup.DailyPnl)
	fmt.Fprintf(&b, "Risk limits allow new positions: %v\n", setup.OpenRiskOK)

	b.WriteString("Detected patterns:\n")
	found := false
	if ob := setup.Patterns.OrderBlock; ob != nil {
		fmt.Fprintf(&b, "- %s order block at %.4f\n", ob.Type, ob.Price)
		found = true
	}
	if fvg := setup.Patterns.FairValueGap; fvg != nil {
		fmt.Fprintf(&b, "- %s fair value gap %.4f to %.4f\n", fvg.Type, fvg.Low, fvg.High)
		found = true
	}
	if sweep := setup.Patterns.LiquiditySweep; sweep != nil {
		fmt.Fprintf(&b, "- liquidity sweep (%s) at %.4f\n", sweep.Type, sweep.Price)
		found = true
	}
	if bos := setup.Patterns.BreakOfStructure; bos != nil {
		fmt.Fprintf(&b, "- %s break of structure\n", bos.Type)
		found = true
	}
	if !found {
		b.WriteString("- none\n")
	}
	return b.String()
}

// parseDecision extracts the JSON verdict, tolerating markdown fences and
// surrounding prose.
func parseDecision(reply string) (*Decision, error) {
	text := strings.TrimSpace(reply)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var d Decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return nil, fmt.Errorf("failed to parse llm decision: %w", err)
	}

	d.Action = Action(strings.ToUpper(string(d.Action)))
	switch d.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return nil, fmt.Errorf("invalid action %q in llm decision", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of range", d.Confidence)
	}
	return &d, nil
}
