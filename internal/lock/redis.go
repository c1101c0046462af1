package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// releaseScript borra la clave solo si el token sigue siendo el nuestro.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis es un Locker distribuido (SET NX PX + release por token).
// El TTL acota cuánto sobrevive un lock si el proceso muere sosteniéndolo.
type Redis struct {
	Client   *redis.Client
	Prefix   string
	TTL      time.Duration
	Interval time.Duration
}

// NewRedis crea un Locker sobre Redis.
func NewRedis(client *redis.Client, prefix string, ttl, interval time.Duration) *Redis {
	if prefix == "" {
		prefix = "lock:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Redis{Client: client, Prefix: prefix, TTL: ttl, Interval: interval}
}

func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.Prefix + key
	token := uuid.NewString()
	wait := l.Interval

	for {
		ok, err := l.Client.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: redis setnx %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-time.After(wait):
		}
		// backoff acotado a 1s
		if wait < time.Second {
			wait *= 2
		}
	}
}

func (l *Redis) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// El contexto del caller puede estar vencido; el release usa uno propio.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.Client, []string{redisKey}, token).Err(); err != nil {
				logger.L().Warn("lock release failed", logger.String("key", redisKey), logger.Err(err))
			}
		})
	}
}
