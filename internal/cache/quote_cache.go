package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// QuoteCacheStats tracks cache performance.
type QuoteCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// RedisQuoteCache keeps recent quotes in Redis with a short TTL.
type RedisQuoteCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.Mutex
	stats QuoteCacheStats
}

// NewRedisQuoteCache creates a quote cache. Entries expire after ttl.
func NewRedisQuoteCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisQuoteCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisQuoteCache{
		redis:  client,
		ttl:    ttl,
		prefix: "quote:",
		logger: logger,
	}
}

func (c *RedisQuoteCache) key(symbol string) string {
	return c.prefix + strings.ToUpper(symbol)
}

// GetQuote returns the cached quote for symbol. Redis errors are treated as misses.
func (c *RedisQuoteCache) GetQuote(ctx context.Context, symbol string) (*models.MarketData, bool) {
	data, err := c.redis.Get(ctx, c.key(symbol)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error reading cached quote")
		}
		c.record(func(s *QuoteCacheStats) { s.Misses++ })
		return nil, false
	}

	var quote models.MarketData
	if err := json.Unmarshal(data, &quote); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Discarding undecodable cached quote")
		c.record(func(s *QuoteCacheStats) { s.Misses++ })
		return nil, false
	}

	c.record(func(s *QuoteCacheStats) { s.Hits++ })
	return &quote, true
}

// SetQuote stores quote under its symbol.
func (c *RedisQuoteCache) SetQuote(ctx context.Context, quote *models.MarketData) error {
	if quote == nil || quote.Symbol == "" {
		return fmt.Errorf("quote without symbol")
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to encode quote for %s: %w", quote.Symbol, err)
	}
	if err := c.redis.Set(ctx, c.key(quote.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote for %s: %w", quote.Symbol, err)
	}
	c.record(func(s *QuoteCacheStats) { s.Sets++ })
	return nil
}

// GetStats returns a snapshot of the counters.
func (c *RedisQuoteCache) GetStats() QuoteCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats logs the hit rate.
func (c *RedisQuoteCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Quote cache stats")
}

// Clear removes every cached quote.
func (c *RedisQuoteCache) Clear(ctx context.Context) error {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}
	return nil
}

func (c *RedisQuoteCache) record(fn func(*QuoteCacheStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}
