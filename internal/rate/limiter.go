package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix                  string
	EnableIPThrottle        bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Limiter throttles failed logins per username and per IP, and refreshes per refresh
// token, using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "hrm"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once username (or ip) has used up its failed-login
// budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if err := l.checkCounter(ctx, l.loginUserKey(username), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt for the username+IP pair.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.loginUserKey(username), l.config.LoginCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.loginIPKey(ip), l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, username, ip string) error {
	keys := []string{l.loginUserKey(username)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// CheckRefresh counts one refresh for tokenID and fails once the window budget is spent.
func (l *Limiter) CheckRefresh(ctx context.Context, tokenID string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.refreshKey(tokenID), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	return nil
}

// GetLoginAttempts returns the current failed-login counter for username.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetLoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginUserKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) loginUserKey(username string) string {
	return l.config.Prefix + ":al:" + username
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.Prefix + ":ali:" + ip
}

func (l *Limiter) refreshKey(tokenID string) string {
	return l.config.Prefix + ":ar:" + tokenID
}
