package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the REST http.Server to provide graceful shutdown.
type Server struct {
	log        *zap.Logger
	httpServer *http.Server
}

func NewServer(addr string, h *Handlers, log *zap.Logger) *Server {
	return &Server{
		log: log.With(zap.String("component", "api")),
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(h),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the HTTP server in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("api listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
