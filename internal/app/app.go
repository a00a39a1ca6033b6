// Package app wires configuration into the shared connections and services
// used by cmd/server and cmd/visitorctl.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/visitor-insights/internal/assistant"
	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/config"
	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/pkg/distlock"
	"github.com/ignite/visitor-insights/internal/pkg/httpretry"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/repository/postgres"
	"github.com/ignite/visitor-insights/internal/snapshot"
	"github.com/ignite/visitor-insights/internal/snowflake"
	"github.com/ignite/visitor-insights/internal/source"
	"github.com/ignite/visitor-insights/internal/storage"
)

// App holds the connections opened from a Config. Unconfigured backends
// are nil.
type App struct {
	Config    *config.Config
	Postgres  *sql.DB
	Redis     *redis.Client
	Snowflake *sql.DB
	Store     storage.Store
	HTTP      httpretry.HTTPDoer
}

// Open connects every configured backend. Postgres and Redis failures are
// logged and the backend is left nil; storage errors are fatal.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	a := &App{
		Config: cfg,
		HTTP:   httpretry.NewRetryClient(&http.Client{Timeout: cfg.Supabase.Timeout()}, 3),
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.Store = store

	if cfg.Database.URL != "" {
		db, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Warn("postgres unavailable, continuing without it", "error", err)
		} else {
			a.Postgres = db
			logger.Info("postgres connected")
		}
	}

	if cfg.Redis.URL != "" {
		rdb, err := openRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, falling back to postgres advisory locks", "error", err)
		} else {
			a.Redis = rdb
			logger.Info("redis connected")
		}
	}

	sf := snowflake.FromConfig(cfg.Snowflake)
	if sf.Account != "" {
		db, err := snowflake.Open(sf)
		if err != nil {
			return nil, fmt.Errorf("initializing snowflake: %w", err)
		}
		a.Snowflake = db
	}

	return a, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL
	if !strings.Contains(dsn, "connect_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "connect_timeout=5"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	var rdb *redis.Client
	if opts, err := redis.ParseURL(url); err == nil {
		rdb = redis.NewClient(opts)
	} else {
		rdb = redis.NewClient(&redis.Options{Addr: url})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Close releases every open connection.
func (a *App) Close() {
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Snowflake != nil {
		a.Snowflake.Close()
	}
}

// Adapter builds the record adapter from the datanorm settings.
func (a *App) Adapter() *datanorm.Adapter {
	return datanorm.NewAdapter(
		datanorm.WithWorkers(a.Config.DataNorm.Workers),
		datanorm.WithDefaultPageViews(a.Config.DataNorm.DefaultPageViews),
	)
}

// Source builds the configured visitor source.
func (a *App) Source() (source.Source, error) {
	return source.FromConfig(a.Config, source.Deps{
		Postgres:  a.Postgres,
		Snowflake: a.Snowflake,
		Store:     a.Store,
		HTTP:      a.HTTP,
	})
}

// Resolver chains the built-in directory with the Postgres companies table
// when enabled, behind the Redis cache when available.
func (a *App) Resolver() company.Resolver {
	dirs := []company.Directory{company.NewStaticDirectory(company.DefaultCompanies)}
	if a.Config.Companies.UsePostgres && a.Postgres != nil {
		dirs = append(dirs, postgres.NewCompanyRepo(a.Postgres))
	}
	var r company.Resolver = company.NewDirectoryResolver(dirs...)
	if a.Redis != nil {
		r = company.NewCachedResolver(r, a.Redis, a.Config.Companies.CacheTTL())
	}
	return r
}

// SnapshotStore is Redis-backed when Redis is connected.
func (a *App) SnapshotStore() snapshot.Store {
	if a.Redis != nil {
		return snapshot.NewRedisStore(a.Redis, "latest")
	}
	return snapshot.NewMemoryStore()
}

// Refresher wires the source, adapter, resolver, lock and archive.
func (a *App) Refresher(store snapshot.Store) (*snapshot.Refresher, error) {
	src, err := a.Source()
	if err != nil {
		return nil, err
	}
	sc := a.Config.Snapshot

	opts := []snapshot.Option{
		snapshot.WithResolver(a.Resolver()),
		snapshot.WithSessionize(a.Config.Source.Sessionize),
		snapshot.WithInterval(sc.Interval()),
	}
	if lock, err := distlock.NewLock(a.Redis, a.Postgres, sc.LockKey, sc.LockTTL()); err == nil {
		opts = append(opts, snapshot.WithLock(lock))
	}
	if sc.Archive {
		opts = append(opts, snapshot.WithArchive(a.Store))
	}
	return snapshot.NewRefresher(src, a.Adapter(), store, opts...), nil
}

// Assistant builds the chat service over summaries.
func (a *App) Assistant(ctx context.Context, summaries assistant.SummarySource) (*assistant.Service, error) {
	ac := a.Config.Assistant
	provider, err := assistant.NewProvider(ctx, ac)
	if err != nil {
		return nil, err
	}
	return assistant.NewService(provider, summaries, assistant.WithSampling(ac.Temperature, ac.MaxTokens))
}
