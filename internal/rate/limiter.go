// Package rate limita el ritmo de notificaciones por tenant (fixed window).
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// NotifyKey es la clave de rate de notificaciones de un tenant.
func NotifyKey(tenant string) string { return "notify:" + tenant }

// Unlimited siempre permite (rate.max == 0).
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true, Remaining: math.MaxInt64}, nil
}

// New arma el limiter según driver. max <= 0 deshabilita el límite.
func New(driver string, client *rdb.Client, max int, window time.Duration) Limiter {
	if max <= 0 {
		return Unlimited{}
	}
	if driver == "redis" && client != nil {
		return NewRedisLimiter(client, "rl:", max, window)
	}
	return NewMemoryLimiter(max, window)
}

// Wait bloquea hasta que la clave tenga cupo o ctx venza.
func Wait(ctx context.Context, l Limiter, key string) error {
	for {
		res, err := l.Allow(ctx, key)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}
		wait := res.RetryAfter
		if wait <= 0 {
			wait = 100 * time.Millisecond
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("rate: waiting for %s: %w", key, ctx.Err())
		case <-t.C:
		}
	}
}

// ─── Redis ───

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// expiry en el primer hit de la ventana
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}
	return l.result(incr.Val(), ttl.Val()), nil
}

func (l *RedisLimiter) result(hits int64, ttl time.Duration) Result {
	return windowResult(hits, l.Max, ttl, l.Window)
}

// ─── Memory ───

// MemoryLimiter es el equivalente in-process de RedisLimiter.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	windows map[string]memWindow
	now     func() time.Time
}

type memWindow struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  window,
		windows: map[string]memWindow{},
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	start := now.Truncate(l.Window)

	l.mu.Lock()
	w := l.windows[key]
	if !w.start.Equal(start) {
		w = memWindow{start: start}
	}
	w.hits++
	l.windows[key] = w
	l.mu.Unlock()

	return windowResult(w.hits, l.Max, start.Add(l.Window).Sub(now), l.Window), nil
}

func windowResult(hits, max int64, ttl, window time.Duration) Result {
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(window.Seconds())) * time.Second
		}
	}
	return res
}
