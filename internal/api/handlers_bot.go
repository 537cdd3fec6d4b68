package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) botAvailable(c *gin.Context) bool {
	if s.bot == nil {
		errorResponse(c, http.StatusServiceUnavailable, "bot control is disabled")
		return false
	}
	return true
}

func (s *Server) handleBotStart(c *gin.Context) {
	if !s.botAvailable(c) {
		return
	}

	var req struct {
		Symbol string `json:"symbol"`
	}
	// Body is optional; an empty symbol falls back to the configured default.
	_ = c.ShouldBindJSON(&req)

	if s.risk != nil && !s.risk.Allowed() {
		errorResponse(c, http.StatusConflict, "daily loss limit reached, trading is disabled for today")
		return
	}

	if err := s.bot.Start(req.Symbol); err != nil {
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.bot.Status())
}

func (s *Server) handleBotStop(c *gin.Context) {
	if !s.botAvailable(c) {
		return
	}

	if err := s.bot.Stop(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.bot.Status())
}

func (s *Server) handleBotStatus(c *gin.Context) {
	if !s.botAvailable(c) {
		return
	}
	c.JSON(http.StatusOK, s.bot.Status())
}

func (s *Server) handleRiskStatus(c *gin.Context) {
	if s.risk == nil {
		errorResponse(c, http.StatusServiceUnavailable, "risk monitoring is disabled")
		return
	}
	c.JSON(http.StatusOK, s.risk.Status())
}

func (s *Server) handleRiskReset(c *gin.Context) {
	if s.risk == nil {
		errorResponse(c, http.StatusServiceUnavailable, "risk monitoring is disabled")
		return
	}
	s.risk.Reset()
	c.JSON(http.StatusOK, s.risk.Status())
}
