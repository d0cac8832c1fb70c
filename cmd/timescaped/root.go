package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/krishnapaul242/gati-sub004/internal/config"
	"github.com/krishnapaul242/gati-sub004/internal/history"
	"github.com/krishnapaul242/gati-sub004/internal/lifecycle"
	"github.com/krishnapaul242/gati-sub004/internal/realtime"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
	"github.com/krishnapaul242/gati-sub004/internal/resolver"
	"github.com/krishnapaul242/gati-sub004/internal/schema"
	"github.com/krishnapaul242/gati-sub004/internal/snapshot"
	"github.com/krishnapaul242/gati-sub004/internal/transform"
	"github.com/krishnapaul242/gati-sub004/pkg/logger"
	"github.com/krishnapaul242/gati-sub004/pkg/metrics"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timescaped",
		Short: "Timescape versioning core: demo server and maintenance CLI",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newSchemaCmd())
	return root
}

// app bundles every core component built from one loaded Config, mirroring
// the teacher's pattern of a single wiring point in cmd/server/main.go.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	registry  *registry.Registry
	resolver  *resolver.Resolver
	engine    *transform.Engine
	lifecycle *lifecycle.Manager
	snapshot  *snapshot.Manager
	schema    *schema.Manager
	history   history.Repository
	bus       *realtime.Bus
	metrics   metrics.Sink
}

// buildApp loads configuration and constructs every core component, wiring
// cross-cutting logging/metrics the way the teacher's main.go builds its
// database pool and router in one pass.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(log)

	var sink metrics.Sink
	if cfg.Metrics.Enabled {
		sink = metrics.NewPrometheusSink(cfg.Metrics.Namespace)
	} else {
		sink = metrics.Noop()
	}

	reg := registry.New(
		registry.WithClassificationParams(registry.ClassificationParams{
			HotThreshold:    cfg.Registry.HotThreshold,
			WarmThreshold:   cfg.Registry.WarmThreshold,
			ColdThresholdMs: cfg.Registry.ColdThreshold.Milliseconds(),
			WindowMs:        cfg.Registry.Window.Milliseconds(),
		}),
		registry.WithLogger(log),
	)

	resolverOpts := []resolver.Option{
		resolver.WithCacheSize(cfg.Resolver.L1CacheSize),
		resolver.WithLogger(log),
	}
	if cfg.Resolver.UseRedisL2 {
		client, err := redisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("build redis client: %w", err)
		}
		resolverOpts = append(resolverOpts, resolver.WithRedis(client, cfg.Resolver.L2KeyPrefix, cfg.Resolver.L2TTL))
	}
	res := resolver.New(reg, resolverOpts...)

	eng := transform.New(transform.WithLogger(log))

	bus := realtime.New(log)

	protected := make(map[string]struct{}, len(cfg.Lifecycle.ProtectedTags))
	for _, tag := range cfg.Lifecycle.ProtectedTags {
		protected[tag] = struct{}{}
	}
	lc := lifecycle.New(reg, lifecycle.Config{
		Enabled:          cfg.Lifecycle.Enabled,
		CheckInterval:    cfg.Lifecycle.CheckInterval,
		ColdThreshold:    cfg.Lifecycle.ColdThreshold,
		MinRequestCount:  cfg.Lifecycle.MinRequestCount,
		ProtectedTags:    protected,
		ExcludedHandlers: map[string]struct{}{},
		DryRun:           cfg.Lifecycle.DryRun,
		OnDemote: func(entry lifecycle.HistoryEntry) {
			bus.Publish(realtime.NewEvent(realtime.EventTypeRevisionDemoted, map[string]interface{}{
				"rid":    string(entry.RID),
				"path":   entry.Path,
				"reason": string(entry.Reason),
			}, realtime.EventSourceLifecycle))
		},
	}, log)

	snap, err := snapshot.New(reg, snapshot.Config{
		Dir:                   cfg.Snapshot.Dir,
		Compress:              cfg.Snapshot.Compress,
		LightSnapshotInterval: cfg.Snapshot.LightSnapshotInterval,
		HeavySnapshotInterval: cfg.Snapshot.HeavySnapshotInterval,
		RetentionPeriod:       cfg.Snapshot.RetentionPeriod,
		HeavyRateLimit:        rate.Limit(cfg.Snapshot.HeavyRateLimitPerSec),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build snapshot manager: %w", err)
	}

	schemaMgr := schema.New(demoMigrationExecutor(log), demoRollbackExecutor(log),
		schema.WithTimeout(cfg.Schema.MigrationTimeout),
		schema.WithLogger(log),
	)

	hist, err := buildHistory(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build history repository: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		registry:  reg,
		resolver:  res,
		engine:    eng,
		lifecycle: lc,
		snapshot:  snap,
		schema:    schemaMgr,
		history:   hist,
		bus:       bus,
		metrics:   sink,
	}, nil
}

func buildHistory(ctx context.Context, cfg *config.Config, log *slog.Logger) (history.Repository, error) {
	switch cfg.History.Backend {
	case "sqlite":
		return history.OpenSQLiteRepository(cfg.History.SQLite.Path, log)
	case "postgres":
		return buildPostgresHistory(ctx, cfg, log)
	default:
		return history.NewMemoryRepository(), nil
	}
}

// buildPostgresHistory opens a plain database/sql connection long enough to
// run goose migrations, then hands the repository a pooled pgxpool.Pool for
// steady-state traffic — the same two-connection-types split the teacher
// uses between its migration runner and its request-serving pool.
func buildPostgresHistory(ctx context.Context, cfg *config.Config, log *slog.Logger) (history.Repository, error) {
	migrateCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(migrateCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := history.Migrate(sqlDB); err != nil {
		return nil, fmt.Errorf("run history migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConnections
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return history.NewPostgresRepository(pool, log), nil
}

func redisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	}), nil
}
