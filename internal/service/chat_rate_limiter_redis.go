package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Devuelve {turnos en la ventana, ms restantes de la ventana}.
const redisChatAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`

const redisChatKeyPrefix = "deepgpt:chat:rl:"

type redisScripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisChatRateLimiter cuenta turnos en una ventana fija compartida entre instancias.
// Si Redis no responde el turno se permite.
type redisChatRateLimiter struct {
	client redisScripter
	logger *zap.Logger
	window time.Duration
	max    int
}

func NewRedisChatRateLimiter(client *redis.Client, window time.Duration, max int, logger *zap.Logger) ChatRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisChatRateLimiter(client, window, max, logger)
}

func newRedisChatRateLimiter(client redisScripter, window time.Duration, max int, logger *zap.Logger) *redisChatRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisChatRateLimiter{client: client, logger: logger, window: window, max: max}
}

func (l *redisChatRateLimiter) Allow(ctx context.Context, clientIP, sessionID string) RateDecision {
	if l == nil || l.client == nil {
		return RateDecision{Allowed: true}
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := redisChatKeyPrefix + rateKey(clientIP, sessionID)
	vals, err := l.client.Eval(ctx, redisChatAllowScript, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 2 {
		l.logger.Warn("chat rate limiter unavailable, allowing turn", zap.String("key", key), zap.Error(err))
		return RateDecision{Allowed: true}
	}
	if vals[0] <= int64(l.max) {
		return RateDecision{Allowed: true}
	}
	retry := time.Duration(vals[1]) * time.Millisecond
	if retry <= 0 {
		retry = l.window
	}
	return RateDecision{Allowed: false, RetryAfter: retry}
}
