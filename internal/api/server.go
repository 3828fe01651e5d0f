package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MichalGrecer/Customer-Finder/internal/config"
	"github.com/MichalGrecer/Customer-Finder/internal/pipeline"
	"github.com/MichalGrecer/Customer-Finder/internal/search"
	"github.com/MichalGrecer/Customer-Finder/internal/store"
	"go.uber.org/zap"
)

// Server holds the dependencies for the HTTP control surface.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	runner     *pipeline.Runner
	search     *search.Client
	creds      *config.CredentialStore
	history    *store.HistoryLog
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, r *pipeline.Runner, sc *search.Client, cs *config.CredentialStore, h *store.HistoryLog, l *zap.Logger) *Server {
	s := &Server{
		config:  cfg,
		runner:  r,
		search:  sc,
		creds:   cs,
		history: h,
		logger:  l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
