package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/config"
	"github.com/MrSnakeDoc/linkshelf/internal/dashboard"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
	"github.com/MrSnakeDoc/linkshelf/internal/redis"
	"github.com/MrSnakeDoc/linkshelf/internal/scheduler"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
	"github.com/MrSnakeDoc/linkshelf/internal/store"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/linkshelf/internal/store/redis"
	"github.com/MrSnakeDoc/linkshelf/internal/store/sqlstore"
	"github.com/MrSnakeDoc/linkshelf/internal/utils"
	"github.com/MrSnakeDoc/linkshelf/internal/version"
)

// MemoryDSN selects the in-process table instead of a database.
const MemoryDSN = "memory://"

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	db          io.Closer
	redisClient *goredis.Client
	sessions    *session.Registry
	sweeper     *scheduler.IdleSweeper
	reloader    *scheduler.HomepageReloader
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	table, db, driver, err := openTable(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	client := store.NewClient(table, loggerClient)

	// Shared cache is optional, but fail fast when configured and unreachable
	var (
		redisClient *goredis.Client
		remote      cache.Remote[[]domain.Bookmark]
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", redisAddrForLog(cfg.RedisAddr))
		redisClient, err = redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			utils.CloseLogged(db, "database", loggerClient)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		shared := redisstore.NewStore[[]domain.Bookmark](redisClient, cfg.CacheTTL)
		if cfg.RedisFlushOnStart {
			n, err := shared.Flush(ctx)
			if err != nil {
				loggerClient.Warn("failed to flush shared cache", logger.Error(err))
			} else {
				loggerClient.Info("shared cache flushed", logger.Int("removed", n))
			}
		}
		remote = shared
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("redis not configured, using per-session cache only")
	}

	sessions := session.NewRegistry(session.NewCacheFactory(cache.Options[[]domain.Bookmark]{
		TTL:         cfg.CacheTTL,
		LoadTimeout: cfg.CacheLoadLimit,
		Remote:      remote,
		Logger:      loggerClient,
	}), loggerClient)

	dashOpts := []dashboard.Option{dashboard.WithSessions(sessions)}
	if remote != nil {
		dashOpts = append(dashOpts, dashboard.WithRemote(remote))
	}
	dash := dashboard.New(client, loggerClient, dashOpts...)

	var fetcher metadata.Fetcher = metadata.NewStub(loggerClient)
	if cfg.MetadataMode == "scrape" {
		var opts []metadata.ScraperOption
		if cfg.MetadataAllowPrivate {
			loggerClient.Warn("metadata scraper may reach private addresses")
			opts = append(opts, metadata.WithPrivateHosts())
		}
		fetcher = metadata.NewScraper(cfg.MetadataTimeout, loggerClient, opts...)
	}
	loggerClient.Info("metadata fetcher configured", logger.String("mode", cfg.MetadataMode))

	sweeper := scheduler.NewIdleSweeper(sessions, loggerClient, cfg.SweepInterval, cfg.SessionIdleTTL)

	// Homepage file import (optional)
	var (
		reloader      *scheduler.HomepageReloader
		importTrigger chan struct{}
	)
	if cfg.HomepageFile != "" {
		format, err := homepage.ParseFormat(cfg.HomepageFormat)
		if err != nil {
			utils.CloseLogged(db, "database", loggerClient)
			return nil, fmt.Errorf("invalid homepage format: %w", err)
		}
		importTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewHomepageReloader(
			homepage.NewLoader(cfg.HomepageFile, format),
			dash,
			cfg.HomepageUser,
			loggerClient,
			cfg.HomepageReloadInterval,
			importTrigger,
		)
		loggerClient.Info("homepage file configured",
			logger.String("file", cfg.HomepageFile),
			logger.String("format", string(format)),
			logger.String("user_id", cfg.HomepageUser))
	}

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Build:          version.Get(),
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateLimit:      cfg.RateLimit,
		Dashboard:      dash,
		Sessions:       sessions,
		JWT:            auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Fetcher:        fetcher,
		DebounceWindow: cfg.MetadataDebounce,
		ImportMaxBytes: cfg.ImportMaxBytes,
		Store:          client,
		RedisClient:    redisClient,
		DatabaseDriver: driver,
		ImportTrigger:  importTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		db:          db,
		redisClient: redisClient,
		sessions:    sessions,
		sweeper:     sweeper,
		reloader:    reloader,
	}, nil
}

// openTable picks the record store backend from the DSN. db is nil for
// the memory table.
func openTable(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Table, io.Closer, string, error) {
	if cfg.DatabaseURL == MemoryDSN {
		log.Warn("using in-memory record store, data is lost on exit")
		return memory.NewTable(), nil, "memory", nil
	}

	db, err := sqlstore.Open(ctx, cfg.DatabaseURL, sqlstore.Options{
		SkipMigrations: !cfg.AutoMigrate,
	}, log)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to open record store: %w", err)
	}
	return db, db, db.Driver(), nil
}

// redisAddrForLog hides credentials of a redis:// URL.
func redisAddrForLog(addr string) string {
	if i := strings.LastIndex(addr, "@"); i != -1 {
		if scheme, _, ok := strings.Cut(addr, "://"); ok {
			return scheme + "://***" + addr[i:]
		}
	}
	return addr
}

func (a *App) Run() error {
	build := version.Get()
	a.logger.Infof("🚀 Starting linkshelf %s on %s", build.Version, a.cfg.ListenPort)
	a.logger.Infof("linkshelf %s (commit=%s, built=%s, go=%s)",
		build.Version, build.Commit, build.BuildDate, build.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.sweeper.Start(ctx)
	a.logger.Info("session sweeper started",
		logger.Duration("idle_ttl", a.cfg.SessionIdleTTL))

	// Start homepage importer (imports now and starts periodic refresh)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			a.sweeper.Stop()
			return fmt.Errorf("failed to start homepage importer: %w", err)
		}
		a.logger.Info("homepage importer started",
			logger.Duration("interval", a.cfg.HomepageReloadInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.sweeper.Stop()
	if a.reloader != nil {
		a.reloader.Stop()
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			runErr = fmt.Errorf("failed to stop server: %w", err)
		}
	}

	a.sessions.CloseAll()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if a.db != nil {
		utils.CloseLogged(a.db, "database", a.logger)
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ linkshelf stopped cleanly")
	return nil
}
