// Package keepalive serves the liveness endpoint polled by the hosting
// platform, plus a health probe and the metrics scrape.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/studiobot/core/buildinfo"
	"github.com/m3rciful/studiobot/core/logger"
)

const component = "keepalive"

// DefaultListen is the listen address used when none is configured.
const DefaultListen = ":8080"

// Server is the keep-alive HTTP server.
type Server struct {
	listen  string
	engine  *gin.Engine
	started time.Time

	mu   sync.Mutex
	http *http.Server
}

// New builds the router. metrics may be nil, in which case /metrics is not
// served.
func New(listen string, metrics http.Handler) *Server {
	if listen == "" {
		listen = DefaultListen
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{listen: listen, engine: gin.New(), started: time.Now()}
	s.engine.Use(gin.Recovery(), accessLog())

	alive := func(c *gin.Context) { c.String(http.StatusOK, "alive") }
	s.engine.GET("/", alive)
	s.engine.HEAD("/", alive)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": buildinfo.Version,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
		})
	})
	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics))
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the listener and serves in the background. A bind failure is
// returned to the caller; serve errors after that are only logged.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("keepalive: listen %s: %w", s.listen, err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	logger.Info(ctx, component, "http.start",
		slog.String("status", "ok"),
		slog.String("listen", ln.Addr().String()),
	)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, component, "http.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Shutdown stops the server gracefully. Calling it before Start is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("keepalive: shutdown: %w", err)
	}
	logger.Info(ctx, component, "http.stop", slog.String("status", "ok"))
	return nil
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if !logger.ShouldSampleDebug() {
			return
		}
		logger.Debug(c.Request.Context(), component, "http.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("http_code", c.Writer.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}
