package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Repository provides data access for the dashboard.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// CreateNotification inserts a notification and returns its ID.
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) (int64, error) {
	var data interface{}
	if len(n.Data) > 0 {
		data = []byte(n.Data)
	}

	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO notifications (type, title, message, severity, data)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		n.Type, n.Title, n.Message, n.Severity, data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create notification: %w", err)
	}
	return id, nil
}

// ListNotifications returns the most recent notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, type, title, message, severity, data, read, created_at
		 FROM notifications ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ListUnreadNotifications returns all unread notifications, newest first.
func (r *Repository) ListUnreadNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, type, title, message, severity, data, read, created_at
		 FROM notifications WHERE NOT read ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkNotificationRead marks one notification as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification as read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE NOT read`); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Severity, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if data != nil {
			n.Data = json.RawMessage(data)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting fetches one setting value by key.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// GetAllSettings returns every setting row.
func (r *Repository) GetAllSettings(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// =============================================================================
// BACKTEST RESULTS
// =============================================================================

// SaveBacktestRecord stores a finished backtest run and returns its ID.
func (r *Repository) SaveBacktestRecord(ctx context.Context, rec *BacktestRecord) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO backtest_results (symbol, timeframe, days, initial_capital, risk_per_trade, result)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		rec.Symbol, rec.Timeframe, rec.Days, rec.InitialCapital, rec.RiskPerTrade, []byte(rec.Result),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save backtest result: %w", err)
	}
	return id, nil
}

// ListBacktestRecords returns recent backtest runs, newest first, without
// the (potentially large) result payload.
func (r *Repository) ListBacktestRecords(ctx context.Context, limit int) ([]BacktestRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, symbol, timeframe, days, initial_capital, risk_per_trade, created_at
		 FROM backtest_results ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest results: %w", err)
	}
	defer rows.Close()

	records := []BacktestRecord{}
	for rows.Next() {
		var rec BacktestRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Days,
			&rec.InitialCapital, &rec.RiskPerTrade, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveBacktestTrades stores the trade rows of a run in one batch.
func (r *Repository) SaveBacktestTrades(ctx context.Context, resultID int64, trades []BacktestTrade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(
			`INSERT INTO backtest_trades
			 (result_id, entry_time, exit_time, entry_price, exit_price, direction, pnl, pnl_percent, reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			resultID, t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice,
			t.Direction, t.Pnl, t.PnlPercent, t.Reason,
		)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save backtest trades: %w", err)
		}
	}
	return nil
}

// ListBacktestTrades returns the trades of one run in entry order.
func (r *Repository) ListBacktestTrades(ctx context.Context, resultID int64) ([]BacktestTrade, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, result_id, entry_time, exit_time, entry_price, exit_price, direction, pnl, pnl_percent, reason
		 FROM backtest_trades WHERE result_id = $1 ORDER BY entry_time`, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest trades: %w", err)
	}
	defer rows.Close()

	trades := []BacktestTrade{}
	for rows.Next() {
		var t BacktestTrade
		if err := rows.Scan(&t.ID, &t.ResultID, &t.EntryTime, &t.ExitTime,
			&t.EntryPrice, &t.ExitPrice, &t.Direction, &t.Pnl, &t.PnlPercent, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan backtest trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// GetBacktestRecord fetches one stored run including its full result.
func (r *Repository) GetBacktestRecord(ctx context.Context, id int64) (*BacktestRecord, error) {
	var rec BacktestRecord
	var result []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, symbol, timeframe, days, initial_capital, risk_per_trade, result, created_at
		 FROM backtest_results WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Days,
		&rec.InitialCapital, &rec.RiskPerTrade, &result, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest result: %w", err)
	}
	rec.Result = json.RawMessage(result)
	return &rec, nil
}
