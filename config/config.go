package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ServerConfig       ServerConfig       `json:"server"`
	BinanceConfig      BinanceConfig      `json:"binance"`
	BacktestConfig     BacktestConfig     `json:"backtest"`
	BotConfig          BotConfig          `json:"bot"`
	AuthConfig         AuthConfig         `json:"auth"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	NotificationConfig NotificationConfig `json:"notification"`
	RiskConfig         RiskConfig         `json:"risk"`
	AIConfig           AIConfig           `json:"ai"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
	TestNet   bool   `json:"testnet"`
}

// BacktestConfig holds defaults for the backtest engine
type BacktestConfig struct {
	StopATRMultiple   float64 `json:"stop_atr_multiple"`   // stop distance in ATRs
	TargetATRMultiple float64 `json:"target_atr_multiple"` // target distance in ATRs
	ReentrySameBar    bool    `json:"reentry_same_bar"`    // allow entry on the bar that closed a position
	CacheTTL          int     `json:"cache_ttl"`           // result cache TTL in seconds
}

// BotConfig holds external bot process configuration
type BotConfig struct {
	PythonPath    string   `json:"python_path"`    // interpreter used to run the bot
	ScriptPath    string   `json:"script_path"`    // path to the bot entry script
	WorkDir       string   `json:"work_dir"`       // working directory for the bot process
	DefaultSymbol string   `json:"default_symbol"` // symbol passed to the bot on start
	StopTimeout   int      `json:"stop_timeout"`   // seconds to wait after SIGTERM before SIGKILL
	AlertKeywords []string `json:"alert_keywords"` // log keywords that raise notifications
}

type AuthConfig struct {
	Enabled           bool   `json:"enabled"`
	JWTSecret         string `json:"jwt_secret"`
	AdminUsername     string `json:"admin_username"`
	AdminPasswordHash string `json:"admin_password_hash"` // bcrypt hash
	TokenDuration     int    `json:"token_duration"`      // access token lifetime in minutes
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// VaultConfig holds HashiCorp Vault configuration for API key storage
type VaultConfig struct {
	Enabled   bool   `json:"enabled"`
	Address   string `json:"address"`
	Token     string `json:"token"`
	MountPath string `json:"mount_path"`
	KeyPrefix string `json:"key_prefix"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type RiskConfig struct {
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent"` // daily loss % that trips the emergency stop
	DefaultRiskPerTrade float64 `json:"default_risk_per_trade"` // default risk % for backtests
}

// AIConfig holds LLM configuration for the live decision module
type AIConfig struct {
	Enabled     bool    `json:"enabled"`
	Provider    string  `json:"provider"` // "claude", "openai", or "deepseek"
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"`
}

// Load reads configuration from config.json (if present) and applies
// environment variable overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(configPath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.AuthConfig.Enabled && cfg.AuthConfig.JWTSecret == "" {
		return nil, fmt.Errorf("auth is enabled but jwt_secret is empty")
	}

	return cfg, nil
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.json"
}

func defaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		BinanceConfig: BinanceConfig{
			BaseURL: "https://api.binance.com",
		},
		BacktestConfig: BacktestConfig{
			StopATRMultiple:   1.5,
			TargetATRMultiple: 3.0,
			ReentrySameBar:    true,
			CacheTTL:          300,
		},
		BotConfig: BotConfig{
			PythonPath:    "python3",
			ScriptPath:    "ai_bot/main.py",
			WorkDir:       "ai_bot",
			DefaultSymbol: "BTCUSDT",
			StopTimeout:   5,
			AlertKeywords: []string{"error", "liquidation", "insufficient balance", "margin call"},
		},
		AuthConfig: AuthConfig{
			AdminUsername: "admin",
			TokenDuration: 60,
		},
		DatabaseConfig: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			SSLMode: "disable",
		},
		RedisConfig: RedisConfig{
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		VaultConfig: VaultConfig{
			MountPath: "secret",
			KeyPrefix: "smc-dashboard",
		},
		RiskConfig: RiskConfig{
			MaxDailyLossPercent: 5.0,
			DefaultRiskPerTrade: 2.0,
		},
		AIConfig: AIConfig{
			Provider:    "claude",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			Output:     "stdout",
			JSONFormat: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ServerConfig.Port = port
		}
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.BinanceConfig.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		cfg.BinanceConfig.SecretKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.AuthConfig.JWTSecret = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.DatabaseConfig.Host = v
		cfg.DatabaseConfig.Enabled = true
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DatabaseConfig.Password = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.RedisConfig.Address = v
		cfg.RedisConfig.Enabled = true
	}
	if v := os.Getenv("VAULT_ADDR"); v != "" {
		cfg.VaultConfig.Address = v
	}
	if v := os.Getenv("VAULT_TOKEN"); v != "" {
		cfg.VaultConfig.Token = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.NotificationConfig.Telegram.BotToken = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.AIConfig.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LoggingConfig.Level = v
	}
}
