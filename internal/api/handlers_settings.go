package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smc-trading-dashboard/internal/cache"
	"smc-trading-dashboard/internal/database"
	"smc-trading-dashboard/internal/vault"
)

func (s *Server) handleGetSettings(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	ctx := c.Request.Context()
	if s.cache != nil {
		var cached []database.Setting
		if err := s.cache.GetJSON(ctx, cache.SettingsKey, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{"settings": cached})
			return
		}
	}

	settings, err := s.repo.GetAllSettings(ctx)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, cache.SettingsKey, settings, 5*time.Minute)
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *Server) handleSetSetting(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "value is required")
		return
	}

	key := c.Param("key")
	if err := s.repo.SetSetting(c.Request.Context(), key, req.Value); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save setting")
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(c.Request.Context(), cache.SettingsKey)
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}

// handleGetAPIKeys reports which exchanges have stored credentials. Secret
// material never leaves the vault through this endpoint.
func (s *Server) handleGetAPIKeys(c *gin.Context) {
	if s.vault == nil {
		errorResponse(c, http.StatusServiceUnavailable, "credential storage is disabled")
		return
	}

	keys, err := s.vault.GetKeys(c.Request.Context(), "binance")
	if errors.Is(err, vault.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to read credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"configured": true,
		"testnet":    keys.Testnet,
		"api_key":    maskKey(keys.APIKey),
	})
}

func (s *Server) handleStoreAPIKeys(c *gin.Context) {
	if s.vault == nil {
		errorResponse(c, http.StatusServiceUnavailable, "credential storage is disabled")
		return
	}

	var req struct {
		Exchange  string `json:"exchange"`
		APIKey    string `json:"api_key" binding:"required"`
		SecretKey string `json:"secret_key" binding:"required"`
		Testnet   bool   `json:"testnet"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "api_key and secret_key are required")
		return
	}
	if req.Exchange == "" {
		req.Exchange = "binance"
	}

	keys := vault.ExchangeKeys{
		APIKey:    req.APIKey,
		SecretKey: req.SecretKey,
		Testnet:   req.Testnet,
	}
	if err := s.vault.StoreKeys(c.Request.Context(), req.Exchange, keys); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to store credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": req.Exchange, "stored": true})
}

func (s *Server) handleDeleteAPIKeys(c *gin.Context) {
	if s.vault == nil {
		errorResponse(c, http.StatusServiceUnavailable, "credential storage is disabled")
		return
	}

	exchange := c.Param("exchange")
	if err := s.vault.DeleteKeys(c.Request.Context(), exchange); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to delete credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": exchange, "deleted": true})
}

// maskKey shows just enough of a key to identify it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
