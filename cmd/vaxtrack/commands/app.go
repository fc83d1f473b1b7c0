package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/wonny/vaxtrack/internal/geo"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/internal/reportconfig"
	"github.com/wonny/vaxtrack/internal/storage"
	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/database"
	"github.com/wonny/vaxtrack/pkg/httputil"
	"github.com/wonny/vaxtrack/pkg/logger"
	"github.com/wonny/vaxtrack/pkg/redis"
)

// ═══════════════════════════════════════════════════════════
// Shared wiring
// Every command assembles its dependencies through these helpers
// ═══════════════════════════════════════════════════════════

// app holds the dependencies of one command invocation
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	defs  *reportconfig.Config
	redis *redis.Client
	db    *database.DB // nil when persistence is disabled
}

// loadConfig reads the environment and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loadDefinitions returns the --config report definitions or the built-in set
func loadDefinitions(log *logger.Logger) (*reportconfig.Config, error) {
	if configFile == "" {
		return reportconfig.Default(), nil
	}

	defs, _, err := reportconfig.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load report definitions: %w", err)
	}
	log.WithField("path", configFile).Info("Report definitions loaded")
	return defs, nil
}

// newApp loads config, logger, definitions and the optional backends
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Report definitions
	defs, err := loadDefinitions(log)
	if err != nil {
		return nil, err
	}

	// 4. Redis (disabled unless REDIS_ENABLED)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		rc = redis.Disabled()
	}

	// 5. Database (optional)
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("DATABASE_URL not set, persistence disabled")
	case err != nil:
		_ = rc.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			_ = rc.Close()
			return nil, err
		}
	}

	return &app{cfg: cfg, log: log, defs: defs, redis: rc, db: db}, nil
}

// Close releases the backends
func (a *app) Close() {
	a.db.Close()
	_ = a.redis.Close()
}

// owidClient creates the dataset client with local pacing and the shared limit
func (a *app) owidClient() *owid.Client {
	httpClient := httputil.New(a.cfg, a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, "ratelimit"), redis.OWIDRateLimit)
	return owid.NewClient(httpClient, a.cfg.Dataset.URL, a.log)
}

// source returns the dataset loader; offline keeps it cache-only
func (a *app) source(offline bool) *owid.Loader {
	if offline {
		return owid.NewLoader(nil, a.cfg.Dataset.CachePath, a.log)
	}
	return owid.NewLoader(a.owidClient(), a.cfg.Dataset.CachePath, a.log)
}

// builder loads the world geometry and creates a report builder.
// Without a world file only the map reports fail, with report.ErrNoWorld.
func (a *app) builder(opts ...report.Option) (*report.Builder, error) {
	world, err := geo.LoadWorldFile(a.cfg.Dataset.WorldPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.log.WithField("path", a.cfg.Dataset.WorldPath).Warn("World geometry not found, map reports disabled")
		world = nil
	case err != nil:
		return nil, fmt.Errorf("load world geometry: %w", err)
	}
	return report.NewBuilder(a.defs, world, opts...), nil
}

// repository returns the snapshot repository, nil without a database
func (a *app) repository() *storage.SnapshotRepository {
	if a.db == nil {
		return nil
	}
	return storage.NewSnapshotRepository(a.db.Pool)
}

// runner wires source, builder and the optional store
func (a *app) runner(source report.Source, builder *report.Builder, outDir string) *report.Runner {
	if outDir == "" {
		outDir = a.cfg.Output.Dir
	}
	r := report.NewRunner(source, builder, outDir, a.log)
	if repo := a.repository(); repo != nil {
		r.WithStore(repo)
	}
	return r
}

// cache returns the API response cache
func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, "vaxtrack")
}
