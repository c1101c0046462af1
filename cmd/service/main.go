// Command service levanta la API de admin y el scheduler de rondas.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/hellopair/internal/cache"
	"github.com/dropDatabas3/hellopair/internal/config"
	"github.com/dropDatabas3/hellopair/internal/directory"
	"github.com/dropDatabas3/hellopair/internal/dispatch"
	httpserver "github.com/dropDatabas3/hellopair/internal/http"
	mw "github.com/dropDatabas3/hellopair/internal/http/middlewares"
	"github.com/dropDatabas3/hellopair/internal/http/router"
	healthsvc "github.com/dropDatabas3/hellopair/internal/http/services/health"
	"github.com/dropDatabas3/hellopair/internal/infra/redisconn"
	"github.com/dropDatabas3/hellopair/internal/lock"
	"github.com/dropDatabas3/hellopair/internal/matching"
	"github.com/dropDatabas3/hellopair/internal/metrics"
	"github.com/dropDatabas3/hellopair/internal/notify"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/observability/tracing"
	"github.com/dropDatabas3/hellopair/internal/pairing"
	"github.com/dropDatabas3/hellopair/internal/rate"
	"github.com/dropDatabas3/hellopair/internal/scheduler"
	"github.com/dropDatabas3/hellopair/internal/slack"
	"github.com/dropDatabas3/hellopair/internal/store"
	_ "github.com/dropDatabas3/hellopair/internal/store/adapters/dal"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("HELLOPAIR_CONFIG"), "Path to YAML config (opcional)")
	envFile := flag.String("env-file", ".env", "Archivo .env a cargar si existe")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.L().Warn("could not load env file", logger.String("path", *envFile), logger.Err(err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal("service stopped with error", logger.Err(err))
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return err
	}
	if err := mw.RegisterHTTPMetrics(reg); err != nil {
		return err
	}

	// ─── Redis compartido (lock / cache / rate) ───
	var rdb *redis.Client
	if cfg.Lock.Driver == "redis" || cfg.Directory.Cache == "redis" || cfg.Notify.Rate.Driver == "redis" {
		rdb, err = redisconn.Open(ctx, redisconn.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Secrets.RedisPassword,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	// ─── Stores ───
	stores, err := store.Open(ctx, storeConfig(cfg))
	if err != nil {
		return err
	}
	defer stores.Close()
	log.Info("stores opened", logger.Any("drivers", stores.Drivers()))

	var locker lock.Locker = lock.NewMemory()
	if cfg.Lock.Driver == "redis" {
		locker = lock.NewRedis(rdb, cfg.Redis.Prefix+"lock:", cfg.Lock.TTL, cfg.Lock.RetryInterval)
	}

	// ─── Directory / Notifier ───
	slackClient := slack.New(cfg.Slack.BaseURL, cfg.Slack.Timeout, cfg.SlackToken)

	dir, err := directory.New(cfg.Directory.Driver, directory.Deps{
		Slack:    slackClient,
		Profiles: stores.Profiles,
		Static:   cfg.Directory.Static,
	})
	if err != nil {
		return err
	}
	identityCache, err := cache.New(cache.Config{
		Driver:     cfg.Directory.Cache,
		Prefix:     cfg.Redis.Prefix + "cache:",
		DefaultTTL: cfg.Directory.CacheTTL,
		Redis:      rdb,
	})
	if err != nil {
		return err
	}
	cachedDir := directory.NewCached(dir, identityCache, cfg.Directory.CacheTTL)

	notifier, err := notify.New(cfg.Notify.Driver, notify.Deps{
		Slack: slackClient,
		SMTP: notify.SMTPConfig{
			Host:    cfg.Notify.SMTP.Host,
			Port:    cfg.Notify.SMTP.Port,
			From:    cfg.Notify.SMTP.From,
			User:    cfg.Notify.SMTP.Username,
			Pass:    cfg.Secrets.SMTPPassword,
			TLSMode: cfg.Notify.SMTP.TLS,
		},
	})
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(dispatch.Options{
		Directory: cachedDir,
		Notifier:  notifier,
		Profiles:  stores.Profiles,
		OptIns:    stores.OptIns,
		Limiter:   rate.New(cfg.Notify.Rate.Driver, rdb, cfg.Notify.Rate.Max, cfg.Notify.Rate.Window),
		KeepOptIn: cfg.Matching.KeepOptInAfterMatch,
	})

	// ─── Matching / Scheduler ───
	engine := matching.New(stores.History, matching.Options{RetryBudget: cfg.Matching.RetryBudget})
	runner := pairing.NewRunner(stores.OptIns, engine, dispatcher, locker)
	sched := scheduler.New(stores.OptIns, runner, scheduler.Config{
		Interval:      cfg.Scheduler.Interval,
		TenantTimeout: cfg.Scheduler.TenantTimeout,
		Concurrency:   cfg.Scheduler.Concurrency,
		RunOnStart:    cfg.Scheduler.RunOnStart,
	})

	// ─── HTTP ───
	checks := map[string]healthsvc.Check{"store": stores.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	deps := router.Deps{
		OptIns:      stores.OptIns,
		History:     stores.History,
		Profiles:    stores.Profiles,
		Invalidator: cachedDir,
		Sweeper:     sched,
		Runner:      runner,
		RunTimeout:  cfg.Scheduler.TenantTimeout,
		Health: healthsvc.Deps{
			Version: version,
			Checks:  checks,
			LastSweep: func() *time.Time {
				if last := sched.LastSweep(); last != nil {
					return &last.StartedAt
				}
				return nil
			},
		},
		AdminKey: cfg.Secrets.AdminAPIKey,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if cfg.Notify.WelcomeEnabled {
		deps.Welcomer = dispatcher
	}
	if deps.AdminKey == "" {
		log.Warn("HELLOPAIR_ADMIN_KEY not set: admin api is open")
	}

	srv := httpserver.NewServer(cfg.Server.Addr, router.New(deps), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.Scheduler.Enabled {
		g.Go(func() error { return sched.Run(gctx) })
	} else {
		log.Info("scheduler disabled; sweeps only via admin api")
	}
	return g.Wait()
}

func storeConfig(cfg *config.Config) store.Config {
	primary := store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		Path:         cfg.Storage.Path,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
		AutoMigrate:  true,
	}
	primary.Redis.Addr = cfg.Redis.Addr
	primary.Redis.Password = cfg.Secrets.RedisPassword
	primary.Redis.DB = cfg.Redis.DB
	primary.Redis.Prefix = cfg.Redis.Prefix

	profiles := primary
	profiles.Name = cfg.ProfilesDriver()
	profiles.DynamoDB.Table = cfg.Profiles.DynamoDB.Table
	profiles.DynamoDB.Region = cfg.Profiles.DynamoDB.Region
	profiles.DynamoDB.Endpoint = cfg.Profiles.DynamoDB.Endpoint

	return store.Config{Storage: primary, Profiles: profiles}
}
