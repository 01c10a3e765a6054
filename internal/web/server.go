package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

// Server exposes a read-only JSON status surface over the running bot.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	bot     *usecase.BotService
	risk    *usecase.RiskService
	repo    domain.SignalRepository
	logger  *zap.Logger
	started time.Time
}

func NewServer(
	port int,
	bot *usecase.BotService,
	risk *usecase.RiskService,
	repo domain.SignalRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		bot:     bot,
		risk:    risk,
		repo:    repo,
		logger:  logger,
		started: time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /status", s.handleStatus)
	s.router.HandleFunc("GET /positions", s.handlePositions)
	s.router.HandleFunc("GET /portfolio", s.handlePortfolio)
	s.router.HandleFunc("GET /signals", s.handleSignals)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
