package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all diversification routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/diversification", h.HandleGetDiversification)
}
