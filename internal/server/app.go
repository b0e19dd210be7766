// Package server wires the relay server together: logger, PostgreSQL
// storage and migrations, the optional Redis catalog cache, the provider
// layer, services, and the HTTP and gRPC transports. It also handles
// graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/cache"
	"github.com/dmitrijs2005/multichat/internal/server/config"
	"github.com/dmitrijs2005/multichat/internal/server/httpserver"
	"github.com/dmitrijs2005/multichat/internal/server/providers"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"github.com/dmitrijs2005/multichat/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	gs "github.com/dmitrijs2005/multichat/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *httpserver.HTTPServer
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	gin.SetMode(gin.ReleaseMode)
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var modelCache services.ModelCache
	if c.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, c.RedisAddr)
		if err != nil {
			logger.Warn(ctx, "model cache disabled", "error", err.Error())
		} else {
			app.redis = client
			modelCache = cache.NewModelCache(client, c.ModelCacheTTL)
		}
	}

	dispatcher := providers.NewDispatcher(providers.Options{
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
		GeminiAPIKey:  c.GeminiAPIKey,
		GeminiBaseURL: c.GeminiBaseURL,
	}, logger)

	us := services.NewUserService(db, rm, c)
	cs := services.NewCatalogService(db, rm, modelCache, logger)
	chat := services.NewChatService(db, rm, dispatcher, logger)

	registry := rpc.NewRegistry(us, cs, chat)
	resolver := auth.NewResolver(us, logger)

	app.httpServer = httpserver.NewHTTPServer(c.EndpointAddrHTTP, logger, registry, resolver)
	if c.EndpointAddrGRPC != "" {
		app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, registry, resolver)
	}

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

type runner interface {
	Run(ctx context.Context) error
}

// start runs one transport; its failure stops the whole app.
func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err.Error())
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
		app.start(ctx, cancelFunc, "http", app.httpServer)
	}()

	if app.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.start(ctx, cancelFunc, "grpc", app.grpcServer)
		}()
	}

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "closing redis", "error", err.Error())
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "closing db", "error", err.Error())
	}
}
