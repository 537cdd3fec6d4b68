// Package notification persists dashboard notifications and fans them out
// to the event bus and any configured external channels.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/internal/database"
	"smc-trading-dashboard/internal/events"
)

// Notification types mirror what the dashboard renders.
const (
	TypePositionOpened      = "POSITION_OPENED"
	TypePositionClosed      = "POSITION_CLOSED"
	TypeRiskLimitWarning    = "RISK_LIMIT_WARNING"
	TypeDailyLimitReached   = "DAILY_LIMIT_REACHED"
	TypeConnectionLost      = "CONNECTION_LOST"
	TypeConnectionRestored  = "CONNECTION_RESTORED"
	TypeEmergencyStop       = "EMERGENCY_STOP"
	TypeBotStarted          = "BOT_STARTED"
	TypeBotStopped          = "BOT_STOPPED"
	TypeBotCrashed          = "BOT_CRASHED"
	TypeBotLogAlert         = "BOT_LOG_ALERT"
)

// Severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
	SeveritySuccess = "SUCCESS"
)

// Store is the persistence surface the service needs; *database.Repository
// satisfies it and tests substitute a fake.
type Store interface {
	CreateNotification(ctx context.Context, n *database.Notification) (int64, error)
	ListNotifications(ctx context.Context, limit int) ([]database.Notification, error)
	ListUnreadNotifications(ctx context.Context) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Sender pushes a notification to an external channel.
type Sender interface {
	Send(n *database.Notification) error
	Name() string
	IsEnabled() bool
}

// Service is the notification pipeline: persist, publish, deliver.
type Service struct {
	store   Store
	bus     *events.EventBus
	senders []Sender
	logger  zerolog.Logger
}

func NewService(store Store, bus *events.EventBus, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// AddSender registers an external channel.
func (s *Service) AddSender(sender Sender) {
	s.senders = append(s.senders, sender)
}

// Notify persists the notification, broadcasts it on the event bus and
// delivers it to external channels. External delivery failures are logged,
// not propagated: a Telegram outage must not break the pipeline.
func (s *Service) Notify(ctx context.Context, notifType, title, message, severity string, data interface{}) error {
	n := &database.Notification{
		Type:      notifType,
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			n.Data = raw
		}
	}

	if s.store != nil {
		id, err := s.store.CreateNotification(ctx, n)
		if err != nil {
			return err
		}
		n.ID = id
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventNotification,
			Data: map[string]interface{}{
				"id":       n.ID,
				"type":     n.Type,
				"title":    n.Title,
				"message":  n.Message,
				"severity": n.Severity,
			},
		})
	}

	for _, sender := range s.senders {
		if !sender.IsEnabled() {
			continue
		}
		if err := sender.Send(n); err != nil {
			s.logger.Error().Err(err).Str("channel", sender.Name()).Msg("external notification failed")
		}
	}

	return nil
}

// List returns recent notifications.
func (s *Service) List(ctx context.Context, limit int) ([]database.Notification, error) {
	return s.store.ListNotifications(ctx, limit)
}

// ListUnread returns unread notifications.
func (s *Service) ListUnread(ctx context.Context) ([]database.Notification, error) {
	return s.store.ListUnreadNotifications(ctx)
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// MarkAllRead marks every unread notification read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.store.MarkAllNotificationsRead(ctx)
}
