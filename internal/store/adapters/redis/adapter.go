// Package redis implementa el adapter Redis del store.
//
// Layout de claves ({prefix} configurable):
//
//	{prefix}tenants               SET  tenants con al menos un opt-in
//	{prefix}optin:{tenant}        HASH participant -> OptInRecord JSON
//	{prefix}history:{tenant}      HASH Edge.Key() -> paired_at (unix ms)
//	{prefix}profiles:{tenant}     HASH participant -> Profile JSON
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/infra/redisconn"
	"github.com/dropDatabas3/hellopair/internal/store"
)

func init() {
	store.RegisterAdapter(&redisAdapter{})
}

type redisAdapter struct{}

func (a *redisAdapter) Name() string { return "redis" }

func (a *redisAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	rdb, err := redisconn.Open(ctx, redisconn.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, pairing.Unavailable(err)
	}
	return New(rdb, cfg.Redis.Prefix), nil
}

// Connection usa un cliente go-redis.
type Connection struct {
	rdb    *goredis.Client
	prefix string
}

// New envuelve un cliente existente.
func New(rdb *goredis.Client, prefix string) *Connection {
	return &Connection{rdb: rdb, prefix: prefix}
}

func (c *Connection) Name() string { return "redis" }

func (c *Connection) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Connection) Close() error {
	return c.rdb.Close()
}

// ─── Repositorios ───

func (c *Connection) OptIns() pairing.OptInRepository     { return &optInRepo{c} }
func (c *Connection) History() pairing.HistoryRepository  { return &historyRepo{c} }
func (c *Connection) Profiles() pairing.ProfileRepository { return &profileRepo{c} }

// ─── Claves ───

func (c *Connection) tenantsKey() string { return c.prefix + "tenants" }

func (c *Connection) optInKey(t pairing.TenantID) string {
	return c.prefix + "optin:" + string(t)
}

func (c *Connection) historyKey(t pairing.TenantID) string {
	return c.prefix + "history:" + string(t)
}

func (c *Connection) profilesKey(t pairing.TenantID) string {
	return c.prefix + "profiles:" + string(t)
}

// wrap: cualquier error distinto de redis.Nil es de conectividad.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, goredis.Nil) {
		return nil
	}
	return pairing.Unavailable(fmt.Errorf("redis: %s: %w", op, err))
}
