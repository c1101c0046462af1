// Package pg implementa el adapter PostgreSQL del store.
// Usa pgxpool directamente; el esquema vive en migrations/postgres.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, pairing.Unavailable(fmt.Errorf("pg: ping failed: %w", err))
	}

	conn := &Connection{pool: pool}
	if cfg.AutoMigrate {
		if _, err := store.NewMigrator(postgres.FS, ".").Up(ctx, conn.MigrationExecutor()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pg: %w", err)
		}
	}
	return conn, nil
}

// NewFromPool envuelve un pool existente (cmd/migrate, tests).
func NewFromPool(pool *pgxpool.Pool) *Connection {
	return &Connection{pool: pool}
}

// Connection representa una conexión activa a PostgreSQL.
type Connection struct {
	pool *pgxpool.Pool
}

func (c *Connection) Name() string { return "postgres" }

func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *Connection) OptIns() pairing.OptInRepository     { return &optInRepo{pool: c.pool} }
func (c *Connection) History() pairing.HistoryRepository  { return &historyRepo{pool: c.pool} }
func (c *Connection) Profiles() pairing.ProfileRepository { return &profileRepo{pool: c.pool} }

// MigrationExecutor implementa store.MigratableConnection.
func (c *Connection) MigrationExecutor() store.MigrationExecutor {
	return &migrationExecutor{pool: c.pool}
}

// wrap marca como ErrStoreUnavailable los errores que no son del servidor
// (conexión caída, timeout, contexto vencido).
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("pg: %s: %w", op, err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	return pairing.Unavailable(err)
}

// ─── migrationExecutor ───

type migrationExecutor struct{ pool *pgxpool.Pool }

func (m *migrationExecutor) EnsureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	return err
}

func (m *migrationExecutor) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[int(v)] = true
	}
	return applied, nil
}

func (m *migrationExecutor) Apply(ctx context.Context, mig store.Migration, d store.Direction) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, mig.SQL(d)); err != nil {
		return err
	}
	if d == store.Up {
		_, err = tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM _migrations WHERE version = $1`, mig.Version)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
