package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript counts hits in one window bucket. The bucket key already
// carries the window index, so the expiry only garbage-collects it.
const windowScript = `
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`

const redisLimiterTimeout = 250 * time.Millisecond

// RedisLimiter shares public-link counters across API instances. When Redis
// is unreachable requests are allowed and the failure is logged once per
// outage.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	script   *redis.Script
	logger   *slog.Logger
	now      func() time.Time
	degraded atomic.Bool
}

func NewRedisLimiter(client *redis.Client, prefix string, logger *slog.Logger) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		script: redis.NewScript(windowScript),
		logger: logger,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if l == nil || key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()
	hits, err := l.script.Run(ctx, l.client, []string{l.bucketKey(key, window)}, window.Milliseconds()*2).Int64()
	if err != nil {
		if l.degraded.CompareAndSwap(false, true) && l.logger != nil {
			l.logger.Warn("rate limiter degraded, allowing public requests", slog.String("error", err.Error()))
		}
		return true
	}
	if l.degraded.CompareAndSwap(true, false) && l.logger != nil {
		l.logger.Info("rate limiter recovered")
	}
	return hits <= int64(limit)
}

func (l *RedisLimiter) bucketKey(key string, window time.Duration) string {
	bucket := strconv.FormatInt(l.now().UnixMilli()/window.Milliseconds(), 10)
	if l.prefix == "" {
		return "ratelimit:" + key + ":" + bucket
	}
	return l.prefix + ":ratelimit:" + key + ":" + bucket
}
