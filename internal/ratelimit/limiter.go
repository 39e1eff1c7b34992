package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/richyrich98/dotanddot/internal/config"
	"github.com/richyrich98/dotanddot/internal/storage"
)

// RateLimiter defines the contract for enforcing per-IP limits.
type RateLimiter interface {
	// AllowIPRequest checks if an IP can make a request at all.
	AllowIPRequest(ctx context.Context, ip string) (bool, error)

	// AllowSharedPathSave checks if an IP can save another anonymous
	// shared path right now.
	AllowSharedPathSave(ctx context.Context, ip string) (bool, error)

	// AllowReportSubmission checks if an IP can submit another accuracy
	// report right now.
	AllowReportSubmission(ctx context.Context, ip string) (bool, error)
}

type Limiter struct {
	redis  storage.RedisClient
	config config.RateLimitConfig
}

func NewLimiter(redisClient storage.RedisClient, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) AllowIPRequest(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:requests", ip)
	return l.checkSlidingWindow(ctx, key, l.config.RequestsPerMinute, 60)
}

func (l *Limiter) AllowSharedPathSave(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:sharedsaves", ip)
	return l.checkSlidingWindow(ctx, key, l.config.SharedSavesPerMinute, 60)
}

func (l *Limiter) AllowReportSubmission(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:reports", ip)
	return l.checkSlidingWindow(ctx, key, l.config.ReportsPerMinute, 60)
}

// checkSlidingWindow implements a sliding window rate limiter using sorted sets
func (l *Limiter) checkSlidingWindow(ctx context.Context, key string, maxCount int, windowSec int) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - int64(windowSec)*int64(time.Second)

	// Remove old entries outside the window
	if err := l.redis.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart)); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	// Count entries in current window
	count, err := l.redis.ZCard(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxCount) {
		return false, nil
	}

	// Add new entry
	if err := l.redis.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d", now),
	}); err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	// Set expiration
	l.redis.Expire(ctx, key, time.Duration(windowSec)*time.Second)

	return true, nil
}
