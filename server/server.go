// server/server.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/log"

	"github.com/gin-gonic/gin"
)

const (
	DefaultAddr        = ":8080"
	DefaultRadiusNM    = 20
	DefaultMaxRadiusNM = 250
	shutdownTimeout    = 10 * time.Second
)

type Config struct {
	Addr        string
	CacheSize   int
	CacheTTL    time.Duration
	MaxRadiusNM float32
	// LogRequests enables a log line for every request at info level.
	LogRequests bool
}

// Server answers airport queries over HTTP. The database may still be
// loading when the server starts; query endpoints return 503 until it
// is ready.
type Server struct {
	cfg       Config
	db        *aviation.Database
	cache     *aviation.NearbyCache
	lg        *log.Logger
	router    *gin.Engine
	startTime time.Time
	queries   atomic.Int64
}

func New(db *aviation.Database, cfg Config, lg *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxRadiusNM <= 0 {
		cfg.MaxRadiusNM = DefaultMaxRadiusNM
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		cache:     aviation.NewNearbyCache(db, cfg.CacheSize, cfg.CacheTTL),
		lg:        lg,
		startTime: time.Now(),
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.logRequest)
	s.routes()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.lg.Infof("%s: listening", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.lg.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func (s *Server) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()

	if !s.cfg.LogRequests {
		return
	}
	args := []any{
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("elapsed", time.Since(start)),
	}
	if len(c.Errors) > 0 {
		args = append(args, slog.String("errors", c.Errors.String()))
	}
	s.lg.Info("request", args...)
}
