// Command migrate aplica o revierte las migraciones SQL embebidas.
package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/hellopair/internal/config"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/internal/store/adapters/pg"
	sqliteadapter "github.com/dropDatabas3/hellopair/internal/store/adapters/sqlite"
	pgmigrations "github.com/dropDatabas3/hellopair/migrations/postgres"
	sqlitemigrations "github.com/dropDatabas3/hellopair/migrations/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("HELLOPAIR_CONFIG"), "Path to YAML config")
	flag.Parse()
	_ = godotenv.Load()

	// Positional args: [action] [steps]
	action := "up"
	steps := 0
	args := flag.Args()
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			steps = n
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "hellopair-migrate"})
	log := logger.L().With(logger.Driver(cfg.Storage.Driver), logger.Op(action))

	ctx := context.Background()
	exec, migrationsFS, closeFn, err := open(ctx, cfg)
	if err != nil {
		log.Fatal("open storage failed", logger.Err(err))
	}
	defer closeFn()

	m := store.NewMigrator(migrationsFS, ".")
	var res *store.MigrationResult
	switch action {
	case "up":
		res, err = m.Up(ctx, exec)
	case "down":
		if steps == 0 {
			steps = 1
		}
		res, err = m.Down(ctx, exec, steps)
	default:
		log.Fatal("unknown action, use: up | down [steps]")
	}
	if err != nil {
		log.Fatal("migration failed", logger.Err(err))
	}
	log.Info("migrations completed",
		logger.Any("applied", res.Applied),
		logger.Count(len(res.Applied)),
		logger.Duration(res.Duration))
}

// open conecta al backend SQL configurado.
func open(ctx context.Context, cfg *config.Config) (store.MigrationExecutor, fs.FS, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg.NewFromPool(pool).MigrationExecutor(), pgmigrations.FS, pool.Close, nil
	case "sqlite":
		conn, err := sqliteadapter.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return conn.MigrationExecutor(), sqlitemigrations.FS, func() { _ = conn.Close() }, nil
	default:
		logger.L().Fatal("storage driver has no sql migrations", logger.Driver(cfg.Storage.Driver))
		return nil, nil, nil, nil
	}
}
