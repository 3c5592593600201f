// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the recall engine over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/recall-engine/internal/recall"
	"github.com/pdiddy/recall-engine/pkg/types"
)

// Recaller is the engine surface the server needs.
type Recaller interface {
	Recall(ctx context.Context, req types.RecallRequest) (types.RecallResponse, error)
}

// Server is the recall HTTP server.
type Server struct {
	engine Recaller
	router *gin.Engine
	logger *slog.Logger
}

// New creates a server with its routes registered.
func New(engine Recaller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{engine: engine, router: router, logger: logger}

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/recall", s.handleRecall)
	}
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRecall(c *gin.Context) {
	var req types.RecallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := s.engine.Recall(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, recall.ErrEmptyPrompt),
		errors.Is(err, recall.ErrInvalidLambda),
		errors.Is(err, recall.ErrInvalidStrategy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, recall.ErrCorpusUnreachable):
		s.logger.Error("recall failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":       err.Error(),
			"diagnostics": resp.Diagnostics,
		})
	default:
		s.logger.Error("recall failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
