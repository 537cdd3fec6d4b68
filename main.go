package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/ai"
	"smc-trading-dashboard/internal/api"
	"smc-trading-dashboard/internal/auth"
	"smc-trading-dashboard/internal/backtest"
	"smc-trading-dashboard/internal/binance"
	"smc-trading-dashboard/internal/cache"
	"smc-trading-dashboard/internal/database"
	"smc-trading-dashboard/internal/events"
	"smc-trading-dashboard/internal/logging"
	"smc-trading-dashboard/internal/notification"
	"smc-trading-dashboard/internal/risk"
	"smc-trading-dashboard/internal/supervisor"
	"smc-trading-dashboard/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("smc trading dashboard starting")

	bus := events.NewEventBus()

	// Persistence is optional; the dashboard degrades to stateless mode.
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(cfg.DatabaseConfig, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		cancel()
		repo = database.NewRepository(db)
	} else {
		logger.Warn().Msg("database disabled, running without persistence")
	}

	var cacheService *cache.Service
	if cfg.RedisConfig.Enabled {
		cacheService = cache.NewService(cfg.RedisConfig, logger)
		defer cacheService.Close()
	}

	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}

	binanceClient := binance.NewClient(
		cfg.BinanceConfig.APIKey,
		cfg.BinanceConfig.SecretKey,
		binanceBaseURL(cfg),
	)

	var notifier *notification.Service
	if repo != nil {
		notifier = notification.NewService(repo, bus, logger)
		if cfg.NotificationConfig.Enabled {
			if cfg.NotificationConfig.Telegram.Enabled {
				notifier.AddSender(notification.NewTelegramSender(cfg.NotificationConfig.Telegram))
				logger.Info().Msg("telegram notifications enabled")
			}
			if cfg.NotificationConfig.Discord.Enabled {
				notifier.AddSender(notification.NewDiscordSender(cfg.NotificationConfig.Discord))
				logger.Info().Msg("discord notifications enabled")
			}
		}
	}

	botSupervisor := supervisor.NewProcessSupervisor(cfg.BotConfig, bus, logger)
	riskMonitor := risk.NewDailyLossMonitor(cfg.RiskConfig, bus, botSupervisor, logger)

	if notifier != nil {
		wireNotifications(bus, notifier, logger)
	}

	var advisor *ai.Advisor
	if cfg.AIConfig.Enabled {
		advisor = ai.NewAdvisor(ai.NewClient(cfg.AIConfig), logger)
		logger.Info().Str("provider", cfg.AIConfig.Provider).Msg("ai advisor enabled")
	}

	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		authService = auth.NewService(
			cfg.AuthConfig.AdminUsername,
			cfg.AuthConfig.AdminPasswordHash,
			cfg.AuthConfig.JWTSecret,
			time.Duration(cfg.AuthConfig.TokenDuration)*time.Minute,
		)
		logger.Info().Msg("authentication enabled")
	}

	runner := backtest.NewRunner(binanceClient, backtest.Config{
		StopATRMultiple:   cfg.BacktestConfig.StopATRMultiple,
		TargetATRMultiple: cfg.BacktestConfig.TargetATRMultiple,
		ReentrySameBar:    cfg.BacktestConfig.ReentrySameBar,
	})

	server := api.NewServer(api.Deps{
		Config:        cfg,
		Logger:        logger,
		Market:        binanceClient,
		Runner:        runner,
		Repo:          repo,
		Cache:         cacheService,
		Notifications: notifier,
		Bot:           botSupervisor,
		Risk:          riskMonitor,
		Advisor:       advisor,
		Vault:         vaultClient,
		Auth:          authService,
		Bus:           bus,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	go streamPrices(streamCtx, binanceClient, bus, cfg.BotConfig.DefaultSymbol, logger)
	if cfg.BinanceConfig.APIKey != "" {
		go streamEquity(streamCtx, binanceClient, bus, logger)
	} else {
		logger.Warn().Msg("no exchange API key, daily loss monitoring has no equity baseline")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if botSupervisor.Status().Running {
		if err := botSupervisor.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to stop bot on shutdown")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

func binanceBaseURL(cfg *config.Config) string {
	if cfg.BinanceConfig.TestNet {
		return "https://testnet.binance.vision"
	}
	return cfg.BinanceConfig.BaseURL
}

// streamPrices polls the 24hr ticker for the default symbol and publishes
// price events, which the websocket hub fans out to connected dashboards.
func streamPrices(ctx context.Context, client *binance.Client, bus *events.EventBus, symbol string, logger zerolog.Logger) {
	if symbol == "" {
		return
	}
	log := logger.With().Str("component", "price_stream").Str("symbol", symbol).Logger()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			t, err := client.Get24hrTicker(reqCtx, symbol)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("failed to fetch ticker")
				continue
			}
			bus.Publish(events.Event{
				Type: events.EventPriceUpdate,
				Data: map[string]interface{}{
					"symbol":         t.Symbol,
					"price":          t.LastPrice,
					"change_percent": t.PriceChangePercent,
					"volume":         t.Volume,
				},
			})
		}
	}
}

// streamEquity polls the account balances and publishes snapshots on the
// bus. The risk monitor consumes them as its equity baseline and the
// websocket hub pushes them to dashboards.
func streamEquity(ctx context.Context, client *binance.Client, bus *events.EventBus, logger zerolog.Logger) {
	log := logger.With().Str("component", "equity_stream").Logger()

	publish := func() {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		balances, err := client.GetBalances(reqCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("failed to fetch balances")
			return
		}

		equity := 0.0
		for _, b := range balances {
			if b.Asset == "USDT" {
				equity += b.Free + b.Locked
			}
		}
		bus.Publish(events.Event{
			Type: events.EventBalanceUpdate,
			Data: map[string]interface{}{
				"equity": equity,
				"assets": len(balances),
			},
		})
	}

	publish()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}

// wireNotifications turns supervisor and risk events into persisted,
// user-visible notifications.
func wireNotifications(bus *events.EventBus, notifier *notification.Service, logger zerolog.Logger) {
	notify := func(notifType, title, severity string) events.Subscriber {
		return func(e events.Event) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			message := ""
			if v, ok := e.Data["error"].(string); ok {
				message = v
			} else if v, ok := e.Data["line"].(string); ok {
				message = v
			} else if v, ok := e.Data["reason"].(string); ok {
				message = v
			}
			if err := notifier.Notify(ctx, notifType, title, message, severity, e.Data); err != nil {
				logger.Error().Err(err).Str("type", notifType).Msg("failed to record notification")
			}
		}
	}

	bus.Subscribe(events.EventBotStarted, notify(notification.TypeBotStarted, "Bot started", notification.SeveritySuccess))
	bus.Subscribe(events.EventBotStopped, notify(notification.TypeBotStopped, "Bot stopped", notification.SeverityInfo))
	bus.Subscribe(events.EventBotCrashed, notify(notification.TypeBotCrashed, "Bot crashed", notification.SeverityError))
	bus.Subscribe(events.EventBotLogAlert, notify(notification.TypeBotLogAlert, "Bot log alert", notification.SeverityWarning))
	bus.Subscribe(events.EventEmergencyStop, notify(notification.TypeEmergencyStop, "Emergency stop", notification.SeverityError))
}
