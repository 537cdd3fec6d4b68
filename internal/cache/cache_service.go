// Package cache provides Redis-based caching for klines and backtest
// results with graceful degradation: when Redis is unavailable the service
// reports misses and the callers fall through to the source.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
)

// ErrMiss is returned on a cache miss or while the circuit is open.
var ErrMiss = errors.New("cache miss")

// Key builders. Backtest keys include every parameter that affects the
// result so distinct runs never collide.
func BacktestKey(symbol, timeframe string, days int, capital, risk float64) string {
	return fmt.Sprintf("backtest:%s:%s:%d:%.2f:%.2f", symbol, timeframe, days, capital, risk)
}

func KlinesKey(symbol, interval string) string {
	return fmt.Sprintf("klines:%s:%s", symbol, interval)
}

// SettingsKey caches the full settings listing. Writes invalidate it.
const SettingsKey = "settings:all"

// Service wraps a Redis client with a small failure circuit breaker.
type Service struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int

	maxFailures int
}

// NewService connects to Redis. A failed initial connection returns the
// service in degraded mode rather than an error; the dashboard works
// without a cache.
func NewService(cfg config.RedisConfig, logger zerolog.Logger) *Service {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	s := &Service{
		client:      client,
		logger:      logger,
		maxFailures: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cache running degraded")
		return s
	}

	s.healthy = true
	logger.Info().Str("address", cfg.Address).Msg("redis connected")
	return s
}

// IsHealthy reports whether Redis is currently usable.
func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// GetJSON fetches a key and unmarshals it into dest. Returns ErrMiss when
// the key is absent or the cache is degraded.
func (s *Service) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if !s.IsHealthy() {
		return ErrMiss
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		s.recordFailure()
		return ErrMiss
	}
	s.recordSuccess()

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is treated as a miss and evicted.
		s.client.Del(ctx, key)
		return ErrMiss
	}
	return nil
}

// SetJSON stores a value with a TTL. Failures are swallowed after being
// counted; caching is best effort.
func (s *Service) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.IsHealthy() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to marshal cache value")
		return
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.recordFailure()
		return
	}
	s.recordSuccess()
}

// Invalidate removes keys matching the exact names given.
func (s *Service) Invalidate(ctx context.Context, keys ...string) {
	if !s.IsHealthy() || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.recordFailure()
	}
}

// Close releases the Redis connection.
func (s *Service) Close() error {
	return s.client.Close()
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount++
	if s.failureCount >= s.maxFailures && s.healthy {
		s.logger.Warn().Int("failures", s.failureCount).Msg("cache circuit open, redis marked unhealthy")
		s.healthy = false
	}
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount = 0
}
