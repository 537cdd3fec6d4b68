// Package vault stores exchange API credentials in HashiCorp Vault (KV v2).
// With Vault disabled it falls back to an in-memory store so development
// setups work without a Vault server.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"smc-trading-dashboard/config"
)

// ErrNotFound is returned when no credentials exist at the requested path.
var ErrNotFound = fmt.Errorf("credentials not found")

// ExchangeKeys holds one set of exchange credentials.
type ExchangeKeys struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Testnet   bool   `json:"testnet"`
}

// Client wraps the Vault API client for credential storage.
type Client struct {
	client *api.Client
	cfg    config.VaultConfig

	mu       sync.RWMutex
	fallback map[string]ExchangeKeys
}

func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{
		cfg:      cfg,
		fallback: make(map[string]ExchangeKeys),
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client
	return c, nil
}

// Enabled reports whether a real Vault backend is in use.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// StoreKeys writes credentials for an exchange.
func (c *Client) StoreKeys(ctx context.Context, exchange string, keys ExchangeKeys) error {
	if !c.cfg.Enabled {
		c.mu.Lock()
		c.fallback[exchange] = keys
		c.mu.Unlock()
		return nil
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    keys.APIKey,
			"secret_key": keys.SecretKey,
			"testnet":    keys.Testnet,
		},
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, c.dataPath(exchange), payload); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}
	return nil
}

// GetKeys reads credentials for an exchange.
func (c *Client) GetKeys(ctx context.Context, exchange string) (*ExchangeKeys, error) {
	if !c.cfg.Enabled {
		c.mu.RLock()
		keys, ok := c.fallback[exchange]
		c.mu.RUnlock()
		if !ok {
			return nil, ErrNotFound
		}
		return &keys, nil
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.dataPath(exchange))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected secret format at %s", c.dataPath(exchange))
	}

	keys := &ExchangeKeys{}
	if v, ok := data["api_key"].(string); ok {
		keys.APIKey = v
	}
	if v, ok := data["secret_key"].(string); ok {
		keys.SecretKey = v
	}
	if v, ok := data["testnet"].(bool); ok {
		keys.Testnet = v
	}
	return keys, nil
}

// DeleteKeys removes credentials for an exchange.
func (c *Client) DeleteKeys(ctx context.Context, exchange string) error {
	if !c.cfg.Enabled {
		c.mu.Lock()
		delete(c.fallback, exchange)
		c.mu.Unlock()
		return nil
	}

	if _, err := c.client.Logical().DeleteWithContext(ctx, c.metadataPath(exchange)); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

// Health verifies the Vault backend is reachable and unsealed.
func (c *Client) Health(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) dataPath(exchange string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.cfg.MountPath, c.cfg.KeyPrefix, exchange)
}

func (c *Client) metadataPath(exchange string) string {
	return fmt.Sprintf("%s/metadata/%s/%s", c.cfg.MountPath, c.cfg.KeyPrefix, exchange)
}
