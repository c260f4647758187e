package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/auth"
	"github.com/Gkemhcs/kavach-auth/internal/auth/jwt"
	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/Gkemhcs/kavach-auth/internal/db"
	"github.com/Gkemhcs/kavach-auth/internal/metrics"
	"github.com/Gkemhcs/kavach-auth/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server for the account API.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	engine   *gin.Engine
	db       *sql.DB // nil when users are kept in memory
	gatherer prometheus.Gatherer
}

// New creates a new Server instance with the given config and logger.
func New(cfg *config.Config, log *logrus.Logger, db *sql.DB, gatherer prometheus.Gatherer, recorder metrics.Recorder) *Server {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(log, recorder))

	s := &Server{
		cfg:      cfg,
		log:      log,
		engine:   engine,
		db:       db,
		gatherer: gatherer,
	}
	s.routes()
	return s
}

// SetupRoutes registers the account API under /api.
func (s *Server) SetupRoutes(authHandler *auth.AuthHandler, jwter *jwt.Manager, limiter gin.HandlerFunc) {
	api := s.engine.Group("/api")
	auth.RegisterAuthRoutes(authHandler, api, middleware.JWTAuthMiddleware(jwter), limiter)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// routes registers health check and other non-API routes.
func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Kavach auth is healthy",
		})
	})

	s.engine.GET("/healthz/detailed", func(c *gin.Context) {
		now := time.Now().UTC().Format(time.RFC3339)

		if s.db == nil {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ok",
				"store":     s.cfg.Store,
				"timestamp": now,
			})
			return
		}

		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.log.WithField("error", err.Error()).Error("Health check: database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "error",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"store":  s.cfg.Store,
			"database": gin.H{
				"status": "connected",
				"pool":   db.GetConnectionStats(s.db),
			},
			"timestamp": now,
		})
	})

	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}
}

// Start runs the HTTP server on the configured port until ctx is cancelled,
// then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
