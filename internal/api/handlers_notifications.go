package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smc-trading-dashboard/internal/database"
)

func (s *Server) notificationsAvailable(c *gin.Context) bool {
	if s.notifications == nil || s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "notifications require persistence")
		return false
	}
	return true
}

func (s *Server) handleListNotifications(c *gin.Context) {
	if !s.notificationsAvailable(c) {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := s.notifications.List(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (s *Server) handleListUnreadNotifications(c *gin.Context) {
	if !s.notificationsAvailable(c) {
		return
	}

	list, err := s.notifications.ListUnread(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	if !s.notificationsAvailable(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid id")
		return
	}

	err = s.notifications.MarkRead(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": id})
}

func (s *Server) handleMarkAllNotificationsRead(c *gin.Context) {
	if !s.notificationsAvailable(c) {
		return
	}

	if err := s.notifications.MarkAllRead(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": "all"})
}
