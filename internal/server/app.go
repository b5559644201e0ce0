// Package server initializes and runs the authentication server.
// It opens the database, applies migrations, wires services to the HTTP
// transport and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"github.com/dmitrijs2005/lingokeeper/internal/server/config"
	"github.com/dmitrijs2005/lingokeeper/internal/server/metrics"
	"github.com/dmitrijs2005/lingokeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lingokeeper/internal/server/rest"
	"github.com/dmitrijs2005/lingokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	purgeInterval   = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	redis          *redis.Client
	httpServer     *rest.HTTPServer
	desktopService *services.DesktopAuthService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "using the default secret key, set LINGO_SECRET_KEY in production")
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	m := metrics.New()
	if err := m.RegisterDB(db, "postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	hasher := auth.NewHasher(c.MaxConcurrentHashes)
	us := services.NewUserService(db, rm, hasher, c, logger)
	ds := services.NewDesktopAuthService(db, rm, c, logger)

	opts := []rest.Option{
		rest.WithMetrics(m),
		rest.WithHealthCheck(db.PingContext),
		rest.WithShutdownTimeout(shutdownTimeout),
	}

	app := &App{config: c, logger: logger, db: db, desktopService: ds}

	if c.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, c.RedisAddr)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client
		opts = append(opts, rest.WithRateLimiter(ratelimit.New(client, c.LoginRateLimit, c.LoginRateWindow)))
	} else {
		logger.Warn(ctx, "redis address not set, rate limiting disabled")
	}

	if logging.ParseLevel(c.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	app.httpServer = rest.NewHTTPServer(c.EndpointAddrHTTP, logger, us, ds, opts...)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runJanitor(ctx, app.logger, app.desktopService, purgeInterval)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
