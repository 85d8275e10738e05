// Package handlers provides HTTP handlers for diversification scoring.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/diversification"
)

// Handler handles diversification HTTP requests
type Handler struct {
	service *diversification.Service
	log     zerolog.Logger
}

// NewHandler creates a new diversification handler
func NewHandler(service *diversification.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "diversification").Logger(),
	}
}

// HandleGetDiversification handles GET /api/portfolios/{id}/diversification
func (h *Handler) HandleGetDiversification(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PortfolioDiversification(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to score diversification")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
