package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/logger"
)

const sessionCachePrefix = "session:"

type CachedSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCache fronts session lookups. Every method degrades to a miss or a
// no-op when the backing store is unreachable.
type SessionCache interface {
	Get(ctx context.Context, token string) (CachedSession, bool)
	Set(ctx context.Context, token string, session CachedSession)
	Delete(ctx context.Context, token string)
	Close() error
}

type redisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	warnedUnavailable atomic.Bool
}

// NewSessionCache connects to Redis. An empty address or a failed ping yields
// a cache that always misses.
func NewSessionCache(cfg config.RedisConfig, log *zap.Logger) SessionCache {
	log = logger.OrNop(log)
	if cfg.Addr == "" {
		return &redisSessionCache{logger: log, now: time.Now}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, bypassing session cache", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return &redisSessionCache{logger: log, now: time.Now}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisSessionCache{client: client, ttl: ttl, logger: log, now: time.Now}
}

func (r *redisSessionCache) unavailable() bool {
	return r == nil || r.client == nil
}

func (r *redisSessionCache) warnOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("session cache error, falling back to database", zap.Error(err))
	}
}

func (r *redisSessionCache) Get(ctx context.Context, token string) (CachedSession, bool) {
	var session CachedSession
	if r.unavailable() || token == "" {
		return session, false
	}

	b, err := r.client.Get(ctx, sessionCachePrefix+token).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.warnOnce(err)
		}
		return session, false
	}
	if err := json.Unmarshal(b, &session); err != nil || session.UserID == "" {
		return CachedSession{}, false
	}
	return session, true
}

func (r *redisSessionCache) Set(ctx context.Context, token string, session CachedSession) {
	if r.unavailable() || token == "" {
		return
	}

	ttl := sessionCacheTTL(r.now(), session.ExpiresAt, r.ttl)
	if ttl <= 0 {
		return
	}

	b, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, sessionCachePrefix+token, b, ttl).Err(); err != nil {
		r.warnOnce(err)
	}
}

func (r *redisSessionCache) Delete(ctx context.Context, token string) {
	if r.unavailable() || token == "" {
		return
	}
	if err := r.client.Del(ctx, sessionCachePrefix+token).Err(); err != nil {
		r.warnOnce(err)
	}
}

func (r *redisSessionCache) Close() error {
	if r.unavailable() {
		return nil
	}
	return r.client.Close()
}

// sessionCacheTTL keeps a cache entry from outliving its session.
func sessionCacheTTL(now, expiresAt time.Time, limit time.Duration) time.Duration {
	remaining := expiresAt.Sub(now)
	if remaining < limit {
		return remaining
	}
	return limit
}
