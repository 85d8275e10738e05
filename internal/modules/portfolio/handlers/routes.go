package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios", h.HandleUpload)                         // Multipart CSV upload
	r.Get("/portfolios/user/{userID}", h.HandleGetUserPortfolios) // Portfolios owned by a user
	r.Get("/portfolios/{id}", h.HandleGetPortfolio)               // Portfolio with holdings
	r.Delete("/portfolios/{id}", h.HandleDelete)                  // Remove portfolio and cached analytics
	r.Get("/portfolios/{id}/summary", h.HandleGetSummary)         // Gain/loss, daily change, weights
	r.Post("/portfolios/{id}/advice", h.HandleAdvice)             // Advisor answer for a question
}
