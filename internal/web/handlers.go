package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "running",
		"uptime":  time.Since(s.started).String(),
		"cycles":  s.bot.Cycles(),
		"updated": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.risk.Positions())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.risk.CheckPortfolioRisk(r.Context())
	if err != nil {
		s.logger.Error("Failed to compute portfolio", zap.Error(err))
		http.Error(w, "Failed to compute portfolio", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, portfolio)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "Signal history disabled", http.StatusNotFound)
		return
	}
	market := r.URL.Query().Get("market")
	if market == "" {
		http.Error(w, "market query parameter required", http.StatusBadRequest)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.repo.ListSignals(r.Context(), market, limit)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, records)
}
