package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"deepgpt/internal/config"
)

// ErrRateLimited indica que el cliente superó el límite de turnos de chat.
var ErrRateLimited = errors.New("too many requests")

// RateLimitError acompaña a ErrRateLimited con la espera sugerida.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RateDecision es la respuesta del limiter para un turno.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// ChatRateLimiter limita los turnos de chat por cliente y sesión.
type ChatRateLimiter interface {
	Allow(ctx context.Context, clientIP, sessionID string) RateDecision
}

// NewChatRateLimiterFromConfig devuelve nil si CHAT_RATE_LIMIT es 0.
// Con redisClient el conteo se comparte en Redis; sin él queda en memoria.
func NewChatRateLimiterFromConfig(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) ChatRateLimiter {
	if cfg == nil || cfg.ChatRateLimit <= 0 {
		return nil
	}
	window := time.Duration(cfg.ChatRateWindowSeconds) * time.Second
	if redisClient != nil {
		return NewRedisChatRateLimiter(redisClient, window, cfg.ChatRateLimit, logger)
	}
	return NewMemoryChatRateLimiter(window, cfg.ChatRateLimit)
}

// rateKey combina IP y sesión. Los turnos que abren una sesión nueva comparten la clave "new".
func rateKey(clientIP, sessionID string) string {
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		ip = "unknown"
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		sid = "new"
	}
	return ip + "|" + sid
}

// Cada cuántas consultas se purgan las claves vencidas de todo el mapa.
const memorySweepEvery = 256

type memoryChatRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	calls  int
	now    func() time.Time
}

// NewMemoryChatRateLimiter crea un limiter de ventana deslizante para un solo proceso.
func NewMemoryChatRateLimiter(window time.Duration, max int) ChatRateLimiter {
	return newMemoryChatRateLimiter(window, max, func() time.Time { return time.Now().UTC() })
}

func newMemoryChatRateLimiter(window time.Duration, max int, now func() time.Time) *memoryChatRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryChatRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    now,
	}
}

func (l *memoryChatRateLimiter) Allow(_ context.Context, clientIP, sessionID string) RateDecision {
	key := rateKey(clientIP, sessionID)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%memorySweepEvery == 0 {
		for k := range l.hits {
			l.live(k, now)
		}
	}

	kept := l.live(key, now)
	if len(kept) >= l.max {
		return RateDecision{Allowed: false, RetryAfter: kept[0].Add(l.window).Sub(now)}
	}
	l.hits[key] = append(kept, now)
	return RateDecision{Allowed: true}
}

// live compacta los hits de key dentro de la ventana y borra la clave si quedó vacía.
func (l *memoryChatRateLimiter) live(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = kept
	return kept
}

func (l *memoryChatRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
