package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/database"
)

// =============================================================================
// TELEGRAM
// =============================================================================

// TelegramSender delivers notifications via the Telegram bot API.
type TelegramSender struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	return &TelegramSender{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) IsEnabled() bool { return t.enabled }

func (t *TelegramSender) Send(n *database.Notification) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", n.Title, n.Message),
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// DISCORD
// =============================================================================

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

func NewDiscordSender(cfg config.DiscordConfig) *DiscordSender {
	return &DiscordSender{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordSender) Name() string { return "discord" }

func (d *DiscordSender) IsEnabled() bool { return d.enabled }

func (d *DiscordSender) Send(n *database.Notification) error {
	if !d.enabled {
		return nil
	}

	colors := map[string]int{
		SeverityInfo:    0x3498db,
		SeverityWarning: 0xf1c40f,
		SeverityError:   0xe74c3c,
		SeveritySuccess: 0x2ecc71,
	}
	color, ok := colors[n.Severity]
	if !ok {
		color = colors[SeverityInfo]
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       n.Title,
				"description": n.Message,
				"color":       color,
				"timestamp":   n.CreatedAt.Format(time.RFC3339),
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
