// Package api exposes the daemon's capture operations over HTTP for the
// test-harness dispatcher.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/chameleond/internal/audio"
	"github.com/smazurov/chameleond/internal/board"
	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/link"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/version"
	"github.com/smazurov/chameleond/internal/video"
)

// Server is the HTTP API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	board      *board.Board
	logger     logging.Logger
}

// NewServer creates the API server for the given board.
func NewServer(b *board.Board, addr string) *Server {
	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("chameleond", version.Version)
	s := &Server{
		api:    humago.New(mux, cfg),
		mux:    mux,
		board:  b,
		logger: logging.GetLogger("api"),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux.Handle("/metrics", promhttp.Handler())
	s.registerPortRoutes()
	s.registerCaptureRoutes()
	s.registerAudioRoutes()
	s.registerLogRoutes()
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// mapError converts capture-engine errors to HTTP status errors, keeping
// the diagnostic text intact.
func (s *Server) mapError(err error) error {
	var alignErr *video.AlignmentError
	var timeoutErr *fpga.TimeoutError
	var linkErr *link.Error
	var overflowErr *audio.OverflowError

	switch {
	case errors.As(err, &alignErr):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &timeoutErr):
		return huma.Error504GatewayTimeout(err.Error())
	case errors.As(err, &linkErr):
		return huma.Error412PreconditionFailed(err.Error())
	case errors.As(err, &overflowErr):
		return huma.NewError(http.StatusInsufficientStorage, err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

// toWindow converts optional request crop params to a capture window.
func toWindow(w *WindowParams) video.Window {
	if w == nil {
		return video.FullField()
	}
	return video.Crop(w.X, w.Y, w.Width, w.Height)
}
