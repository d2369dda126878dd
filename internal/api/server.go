// Package api serves the read-only HTTP endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"StockIntel/internal/observability"
	"StockIntel/internal/service"
)

type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// Config holds everything the router needs.
type Config struct {
	Addr        string
	CORSOrigins []string
	Service     *service.StockService
	Metrics     *observability.Metrics
	Logger      *logrus.Logger
}

func NewServer(cfg Config) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
