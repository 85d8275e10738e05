package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all hedging routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/hedging", h.HandleGetHedging)
	r.Post("/options", h.HandleUploadChain)
}
