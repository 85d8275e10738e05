// Package handlers provides HTTP handlers for portfolio upload and valuation.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
)

const maxUploadBytes = 10 << 20

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleUpload stores a portfolio from a multipart CSV upload.
// Form fields: file (required), user_id (optional).
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "No file provided")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	if fileName == "" || fileName == "." {
		h.writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		h.writeError(w, http.StatusBadRequest, "Invalid file type. Only CSV files are allowed")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if !utf8.Valid(content) {
		h.writeError(w, http.StatusBadRequest, "File encoding error. Please ensure the file is UTF-8 encoded")
		return
	}

	userID := r.FormValue("user_id")
	outcome, err := h.service.Import(r.Context(), userID, fileName, strings.NewReader(string(content)))
	var importErr *portfolio.ImportError
	if errors.As(err, &importErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "CSV validation failed",
			"details":  importErr.Errors,
			"warnings": importErr.Warnings,
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("file", fileName).Msg("Failed to store portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to save portfolio")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":        "Portfolio uploaded and processed successfully",
		"portfolio_id":   outcome.Portfolio.ID,
		"filename":       fileName,
		"holdings_count": len(outcome.Portfolio.Holdings),
		"warnings":       outcome.Warnings,
	})
}

// HandleGetPortfolio returns a portfolio with its holdings and valuation.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio":      p,
			"holdings":       p.Holdings,
			"summary":        portfolio.Summarize(p.Holdings, nil),
			"holdings_count": len(p.Holdings),
		},
		"metadata": metadata(),
	})
}

// HandleGetSummary returns gain/loss, daily change and weights.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     summary,
		"metadata": metadata(),
	})
}

// HandleGetUserPortfolios lists a user's portfolios.
func (h *Handler) HandleGetUserPortfolios(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	list, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"user_id":    userID,
			"portfolios": list,
			"count":      len(list),
		},
		"metadata": metadata(),
	})
}

type adviceRequest struct {
	Question string `json:"question"`
}

// HandleAdvice answers a question about a portfolio.
func (h *Handler) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	advice, err := h.service.Advise(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     advice,
		"metadata": metadata(),
	})
}

// HandleDelete removes a portfolio.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, portfolio.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	h.log.Error().Err(err).Msg("Portfolio request failed")
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
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
