package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/events"
)

// newTestSupervisor wires a supervisor around a shell script instead of
// the Python bot. The --symbol flag the supervisor appends becomes a
// positional argument the script ignores.
func newTestSupervisor(t *testing.T, script string, bus *events.EventBus) *ProcessSupervisor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write test script: %v", err)
	}
	return NewProcessSupervisor(config.BotConfig{
		PythonPath:    "sh",
		ScriptPath:    path,
		DefaultSymbol: "BTCUSDT",
		StopTimeout:   2,
		AlertKeywords: []string{"error", "liquidation"},
	}, bus, zerolog.Nop())
}

func collectEvents(bus *events.EventBus, eventType events.EventType) <-chan events.Event {
	ch := make(chan events.Event, 8)
	bus.Subscribe(eventType, func(e events.Event) {
		ch <- e
	})
	return ch
}

func TestStartAndStatus(t *testing.T) {
	bus := events.NewEventBus()
	started := collectEvents(bus, events.EventBotStarted)

	s := NewProcessSupervisor(config.BotConfig{
		PythonPath:    "sleep",
		ScriptPath:    "10",
		DefaultSymbol: "BTCUSDT",
		StopTimeout:   2,
	}, bus, zerolog.Nop())

	if err := s.Start(""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(context.Background())

	st := s.Status()
	if !st.Running {
		t.Error("expected running status")
	}
	if st.Symbol != "BTCUSDT" {
		t.Errorf("expected default symbol, got %s", st.Symbol)
	}
	if st.PID == 0 {
		t.Error("expected a pid")
	}

	select {
	case e := <-started:
		if e.Data["symbol"] != "BTCUSDT" {
			t.Errorf("unexpected start event symbol: %v", e.Data["symbol"])
		}
	case <-time.After(time.Second):
		t.Fatal("no start event published")
	}
}

func TestStartWhileRunningFails(t *testing.T) {
	s := NewProcessSupervisor(config.BotConfig{
		PythonPath:  "sleep",
		ScriptPath:  "10",
		StopTimeout: 2,
	}, nil, zerolog.Nop())

	if err := s.Start("BTCUSDT"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(context.Background())

	if err := s.Start("ETHUSDT"); err == nil {
		t.Error("expected second start to fail")
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	bus := events.NewEventBus()
	stopped := collectEvents(bus, events.EventBotStopped)

	s := NewProcessSupervisor(config.BotConfig{
		PythonPath:  "sleep",
		ScriptPath:  "10",
		StopTimeout: 2,
	}, bus, zerolog.Nop())

	if err := s.Start("BTCUSDT"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if st := s.Status(); st.Running {
		t.Error("expected stopped status after stop")
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("no stop event published")
	}
}

func TestStopWhenNotRunningFails(t *testing.T) {
	s := NewProcessSupervisor(config.BotConfig{}, nil, zerolog.Nop())
	if err := s.Stop(context.Background()); err == nil {
		t.Error("expected an error when stopping a stopped bot")
	}
}

func TestCrashPublishesEvent(t *testing.T) {
	bus := events.NewEventBus()
	crashed := collectEvents(bus, events.EventBotCrashed)

	s := newTestSupervisor(t, "exit 3", bus)
	if err := s.Start("BTCUSDT"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case e := <-crashed:
		errMsg, _ := e.Data["error"].(string)
		if !strings.Contains(errMsg, "exit status 3") {
			t.Errorf("expected exit status in crash event, got %q", errMsg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no crash event published")
	}

	if st := s.Status(); st.Running {
		t.Error("expected stopped status after crash")
	}
}

func TestLogAlertOnKeyword(t *testing.T) {
	bus := events.NewEventBus()
	alerts := collectEvents(bus, events.EventBotLogAlert)

	s := newTestSupervisor(t, `echo "ERROR: liquidation imminent"; sleep 5`, bus)
	s.cfg.AlertKeywords = []string{"liquidation"}

	if err := s.Start("BTCUSDT"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case e := <-alerts:
		if e.Data["keyword"] != "liquidation" {
			t.Errorf("unexpected keyword: %v", e.Data["keyword"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no log alert published")
	}
}

func TestTradeClosedLinePublishesEvent(t *testing.T) {
	bus := events.NewEventBus()
	trades := collectEvents(bus, events.EventTradeClosed)

	s := newTestSupervisor(t, `echo "TRADE CLOSED symbol=BTCUSDT pnl=-42.50"; sleep 5`, bus)
	if err := s.Start("BTCUSDT"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case e := <-trades:
		if pnl, _ := e.Data["pnl"].(float64); pnl != -42.5 {
			t.Errorf("expected pnl -42.5, got %v", e.Data["pnl"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no trade closed event published")
	}
}

func TestParseTradePnl(t *testing.T) {
	tests := []struct {
		line    string
		wantPnl float64
		wantOK  bool
	}{
		{"TRADE CLOSED symbol=BTCUSDT pnl=-42.50 reason=stop", -42.5, true},
		{"trade closed pnl: 13.7", 13.7, true},
		{"2024-01-01 INFO trade closed PNL=0.25", 0.25, true},
		{"TRADE CLOSED but no amount here", 0, false},
		{"position updated pnl=-5.0", 0, false},
		{"all quiet", 0, false},
	}
	for _, tt := range tests {
		pnl, ok := parseTradePnl(tt.line)
		if ok != tt.wantOK || pnl != tt.wantPnl {
			t.Errorf("parseTradePnl(%q) = (%v, %v), want (%v, %v)",
				tt.line, pnl, ok, tt.wantPnl, tt.wantOK)
		}
	}
}

func TestLogMonitorMatching(t *testing.T) {
	m := newLogMonitor([]string{"Error", " MARGIN CALL "}, nil, zerolog.Nop())

	tests := []struct {
		line string
		want string
	}{
		{"2024-01-01 ERROR something broke", "error"},
		{"margin call triggered", "margin call"},
		{"all quiet", ""},
	}
	for _, tt := range tests {
		if got := m.match(tt.line); got != tt.want {
			t.Errorf("match(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
