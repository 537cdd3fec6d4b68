// Package supervisor manages the external Python trading bot process:
// start, graceful stop, crash detection and log monitoring.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/events"
)

// Controller is the surface the API layer uses to drive the bot.
type Controller interface {
	Start(symbol string) error
	Stop(ctx context.Context) error
	Status() Status
}

// Status is a snapshot of the bot process state.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UptimeSec int64     `json:"uptime_seconds"`
	ExitError string    `json:"exit_error,omitempty"`
}

// ProcessSupervisor runs the bot as a child process. It sends SIGTERM on
// stop and escalates to SIGKILL if the process ignores it.
type ProcessSupervisor struct {
	cfg    config.BotConfig
	bus    *events.EventBus
	logger zerolog.Logger

	mu            sync.Mutex
	cmd           *exec.Cmd
	symbol        string
	startedAt     time.Time
	stopRequested bool
	lastExitError string
	done          chan struct{}
}

func NewProcessSupervisor(cfg config.BotConfig, bus *events.EventBus, logger zerolog.Logger) *ProcessSupervisor {
	return &ProcessSupervisor{
		cfg:    cfg,
		bus:    bus,
		logger: logger.With().Str("component", "supervisor").Logger(),
	}
}

// Start launches the bot process for the given symbol. Starting while the
// bot is already running is an error.
func (s *ProcessSupervisor) Start(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("bot is already running (pid %d)", s.cmd.Process.Pid)
	}
	if symbol == "" {
		symbol = s.cfg.DefaultSymbol
	}

	cmd := exec.Command(s.cfg.PythonPath, s.cfg.ScriptPath, "--symbol", symbol)
	cmd.Dir = s.cfg.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start bot process: %w", err)
	}

	s.cmd = cmd
	s.symbol = symbol
	s.startedAt = time.Now()
	s.stopRequested = false
	s.lastExitError = ""
	s.done = make(chan struct{})

	monitor := newLogMonitor(s.cfg.AlertKeywords, s.bus, s.logger)
	go monitor.consume("stdout", stdout)
	go monitor.consume("stderr", stderr)
	go s.wait(cmd)

	s.logger.Info().Int("pid", cmd.Process.Pid).Str("symbol", symbol).Msg("bot process started")
	s.publish(events.EventBotStarted, map[string]interface{}{
		"pid":    cmd.Process.Pid,
		"symbol": symbol,
	})
	return nil
}

// wait blocks until the process exits and classifies the exit as a
// requested stop or a crash.
func (s *ProcessSupervisor) wait(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	requested := s.stopRequested
	symbol := s.symbol
	uptime := time.Since(s.startedAt)
	if err != nil {
		s.lastExitError = err.Error()
	}
	s.cmd = nil
	close(s.done)
	s.mu.Unlock()

	if requested {
		s.logger.Info().Str("symbol", symbol).Dur("uptime", uptime).Msg("bot process stopped")
		s.publish(events.EventBotStopped, map[string]interface{}{
			"symbol":         symbol,
			"uptime_seconds": int64(uptime.Seconds()),
		})
		return
	}

	s.logger.Error().Err(err).Str("symbol", symbol).Dur("uptime", uptime).Msg("bot process exited unexpectedly")
	data := map[string]interface{}{
		"symbol":         symbol,
		"uptime_seconds": int64(uptime.Seconds()),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	s.publish(events.EventBotCrashed, data)
}

// Stop terminates the bot process. SIGTERM first; SIGKILL once the
// configured timeout or the caller's context expires.
func (s *ProcessSupervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	if cmd == nil {
		s.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}
	s.stopRequested = true
	s.mu.Unlock()

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-done
			return nil
		}
		return fmt.Errorf("failed to signal bot process: %w", err)
	}

	timeout := time.Duration(s.cfg.StopTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	case <-ctx.Done():
	}

	s.logger.Warn().Msg("bot ignored SIGTERM, killing")
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill bot process: %w", err)
	}
	<-done
	return nil
}

// Status reports the current process state.
func (s *ProcessSupervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{ExitError: s.lastExitError}
	if s.cmd != nil {
		st.Running = true
		st.PID = s.cmd.Process.Pid
		st.Symbol = s.symbol
		st.StartedAt = s.startedAt
		st.UptimeSec = int64(time.Since(s.startedAt).Seconds())
	}
	return st
}

func (s *ProcessSupervisor) publish(eventType events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Data: data})
}

// drainLines reads a stream line by line and hands each line to fn.
func drainLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}
