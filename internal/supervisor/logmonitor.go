package supervisor

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/internal/events"
)

// logMonitor scans bot output for alert keywords and closed-trade reports,
// raising events for both. Keyword matching is case insensitive.
type logMonitor struct {
	keywords []string
	bus      *events.EventBus
	logger   zerolog.Logger
}

func newLogMonitor(keywords []string, bus *events.EventBus, logger zerolog.Logger) *logMonitor {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &logMonitor{keywords: lowered, bus: bus, logger: logger}
}

// consume reads a bot output stream until EOF, forwarding every line to
// the dashboard log and checking it against the alert keywords.
func (m *logMonitor) consume(stream string, r io.Reader) {
	drainLines(r, func(line string) {
		m.logger.Debug().Str("stream", stream).Msg(line)
		if pnl, ok := parseTradePnl(line); ok {
			m.logger.Info().Float64("pnl", pnl).Str("stream", stream).Msg("bot reported closed trade")
			if m.bus != nil {
				m.bus.Publish(events.Event{
					Type: events.EventTradeClosed,
					Data: map[string]interface{}{
						"pnl":    pnl,
						"line":   line,
						"stream": stream,
					},
				})
			}
		}
		if keyword := m.match(line); keyword != "" {
			m.logger.Warn().Str("keyword", keyword).Str("line", line).Msg("bot log alert")
			if m.bus != nil {
				m.bus.Publish(events.Event{
					Type: events.EventBotLogAlert,
					Data: map[string]interface{}{
						"keyword": keyword,
						"line":    line,
						"stream":  stream,
					},
				})
			}
		}
	})
}

var tradePnlPattern = regexp.MustCompile(`(?i)pnl[=:]\s*(-?[0-9]+(?:\.[0-9]+)?)`)

// parseTradePnl extracts the realized P&L from a closed-trade report. The
// bot announces closed trades as lines containing "TRADE CLOSED" with a
// "pnl=<amount>" token; everything else on the line is ignored.
func parseTradePnl(line string) (float64, bool) {
	if !strings.Contains(strings.ToLower(line), "trade closed") {
		return 0, false
	}
	match := tradePnlPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	pnl, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return pnl, true
}

// match returns the first keyword found in the line, or "".
func (m *logMonitor) match(line string) string {
	lowered := strings.ToLower(line)
	for _, keyword := range m.keywords {
		if strings.Contains(lowered, keyword) {
			return keyword
		}
	}
	return ""
}
