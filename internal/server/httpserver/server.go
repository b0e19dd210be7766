// Package httpserver exposes the procedure catalog over a batched HTTP RPC
// endpoint compatible with tRPC's httpBatchLink and the superjson
// transformer.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address  string
	engine   *gin.Engine
	registry *rpc.Registry
	resolver *auth.Resolver
	logger   logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, reg *rpc.Registry, res *auth.Resolver) *HTTPServer {
	s := &HTTPServer{
		address:  address,
		engine:   gin.New(),
		registry: reg,
		resolver: res,
		logger:   l.With("module", "http_server"),
	}

	s.engine.Use(requestID(), s.accessLog(), gin.CustomRecovery(s.recover))
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/trpc")
	api.GET("/:procedures", s.handle(rpc.Query))
	api.POST("/:procedures", s.handle(rpc.Mutation))

	return s
}

// Handler returns the routed engine, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) recover(c *gin.Context, p any) {
	s.logger.Error(c.Request.Context(), "panic in handler", "panic", p, "path", c.Request.URL.Path)
	c.AbortWithStatus(http.StatusInternalServerError)
}
