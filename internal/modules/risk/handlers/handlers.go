// Package handlers provides HTTP handlers for risk metrics operations.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
)

// DefaultRollingPeriod is the trailing window, in returns, of rolling volatility.
const DefaultRollingPeriod = 20

// Handler handles risk metrics HTTP requests
type Handler struct {
	service *risk.Service
	log     zerolog.Logger
}

// NewHandler creates a new risk metrics handler
func NewHandler(service *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetPortfolioRisk handles GET /api/portfolios/{id}/risk
func (h *Handler) HandleGetPortfolioRisk(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	levels, err := parseConfidenceLevels(r.URL.Query().Get("confidence"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.PortfolioRisk(r.Context(), chi.URLParam(r, "id"), risk.Request{
		Window:           window,
		ConfidenceLevels: levels,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     result,
		"metadata": metadata(),
	})
}

// HandleGetSecurityVolatility handles GET /api/risk/securities/{ticker}/volatility
func (h *Handler) HandleGetSecurityVolatility(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	vol, err := h.service.SecurityVolatility(r.Context(), ticker, window)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     vol,
		"metadata": metadata(),
	})
}

// HandleGetRollingVolatility handles GET /api/risk/securities/{ticker}/rolling-volatility
func (h *Handler) HandleGetRollingVolatility(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	period := DefaultRollingPeriod
	if s := r.URL.Query().Get("period"); s != "" {
		period, err = strconv.Atoi(s)
		if err != nil || period < 2 {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid period %q", s))
			return
		}
	}

	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	points, err := h.service.RollingVolatility(r.Context(), ticker, window, period)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ticker": ticker,
			"window": window,
			"period": period,
			"points": points,
		},
		"metadata": metadata(),
	})
}

func parseConfidenceLevels(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		c, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidConfidenceLevel, p)
		}
		levels = append(levels, c)
	}
	return levels, nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsRequestError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
	case errors.Is(err, domain.ErrInsufficientData):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Risk request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// writeJSON encodes before writing the header so an unencodable result
// becomes a 500 instead of a truncated 200.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
