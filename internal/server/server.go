// Package server exposes a read-only HTTP view of the current pipeline run.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/voiceprompt/internal/config"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// SnapshotSource is where the server reads run state from.
type SnapshotSource interface {
	Snapshot() pipeline.Snapshot
}

// Server represents the status HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	source SnapshotSource
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, source SnapshotSource) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	server := &Server{
		config: cfg,
		logger: logger,
		router: router,
		source: source,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router returns the underlying handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on the configured status address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.StatusAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.config.StatusAddr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}

	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/run", s.handleRun)
		api.GET("/run/speech", s.handleSpeech)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "voiceprompt",
	})
}

func (s *Server) handleRun(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Snapshot())
}

// handleSpeech serves the synthesized audio of the last run.
func (s *Server) handleSpeech(c *gin.Context) {
	snap := s.source.Snapshot()
	if snap.Results.Speech == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no synthesized speech"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(snap.Results.Speech.AudioBase64)
	if err != nil {
		s.logger.Error("stored speech is not valid base64", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "stored speech is corrupt"})
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", data)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("status request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
