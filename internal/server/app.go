// Package server wires configuration, storage, the denylist cache and the
// session service into the HTTP and gRPC endpoints and runs them until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/denylist"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/web"

	gs "github.com/dmitrijs2005/sessionkeeper/internal/server/grpc"
)

const cacheSweepInterval = time.Minute

type App struct {
	config   *config.Config
	logger   logging.Logger
	sessions *services.SessionService
	memCache *denylist.MemoryCache
	closers  []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	store, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	cache, err := app.openCache(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	app.sessions = services.NewSessionService(store, auth.NewHasher(c.BcryptCost), issuer, denylist.New(cache), logger)

	return app, nil
}

func (app *App) openStore(ctx context.Context) (credentials.Store, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory credential store")
		return credentials.NewMemoryStore(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	return credentials.NewSQLStore(db, m), nil
}

func (app *App) openCache(ctx context.Context) (denylist.Cache, error) {
	if app.config.RedisURL == "" {
		app.logger.Warn(ctx, "no redis URL configured, using in-process denylist cache")
		app.memCache = denylist.NewMemoryCache()
		return app.memCache, nil
	}

	cache, err := denylist.NewRedisCacheFromURL(ctx, app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, cache)
	return cache, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or one of the servers
// fails. Resources are released before it returns.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.memCache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memCache.RunSweeper(ctx, cacheSweepInterval)
		}()
	}

	servers := map[string]runner{
		"http": web.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.sessions),
		"grpc": gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions),
	}
	for name, r := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.start(ctx, cancelFunc, name, r)
		}()
	}

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}

func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}
