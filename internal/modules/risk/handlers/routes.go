package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk metrics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/risk", h.HandleGetPortfolioRisk)

	r.Route("/risk/securities/{ticker}", func(r chi.Router) {
		r.Get("/volatility", h.HandleGetSecurityVolatility)
		r.Get("/rolling-volatility", h.HandleGetRollingVolatility)
	})
}
