// Package sqlite implementa el adapter SQLite (modernc, pure Go) del store.
// Pensado para despliegues de un solo nodo: un archivo, WAL, migraciones embebidas.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
	sqlitemigrations "github.com/dropDatabas3/hellopair/migrations/sqlite"
)

func init() {
	store.RegisterAdapter(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return Open(ctx, cfg.Path)
}

// Connection persiste el estado en un archivo SQLite.
type Connection struct {
	db *sql.DB
}

// Open abre la base y aplica las migraciones embebidas.
func Open(ctx context.Context, path string) (*Connection, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, pairing.Unavailable(fmt.Errorf("sqlite: ping: %w", err))
	}

	conn := &Connection{db: db}
	if _, err := store.NewMigrator(migrationsFS(), ".").Up(ctx, conn.MigrationExecutor()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return conn, nil
}

func (c *Connection) Name() string { return "sqlite" }

func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Connection) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ─── Repositorios ───

func (c *Connection) OptIns() pairing.OptInRepository     { return &optInRepo{db: c.db} }
func (c *Connection) History() pairing.HistoryRepository  { return &historyRepo{db: c.db} }
func (c *Connection) Profiles() pairing.ProfileRepository { return &profileRepo{db: c.db} }

// MigrationExecutor implementa store.MigratableConnection.
func (c *Connection) MigrationExecutor() store.MigrationExecutor {
	return &migrationExecutor{db: c.db}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// wrap marca como ErrStoreUnavailable los fallos de I/O o de locking.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("sqlite: %s: %w", op, err)
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pairing.Unavailable(wrapped)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_IOERR, sqlite3lib.SQLITE_CANTOPEN:
			return pairing.Unavailable(wrapped)
		}
	}
	return wrapped
}

// ─── migrationExecutor ───

type migrationExecutor struct{ db *sql.DB }

func (m *migrationExecutor) EnsureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`)
	return err
}

func (m *migrationExecutor) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *migrationExecutor) Apply(ctx context.Context, mig store.Migration, d store.Direction) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL(d)); err != nil {
		return err
	}
	if d == store.Up {
		_, err = tx.ExecContext(ctx, `INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			mig.Version, mig.Name, toMillis(time.Now()))
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM _migrations WHERE version = ?`, mig.Version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func migrationsFS() fs.FS { return sqlitemigrations.FS }
