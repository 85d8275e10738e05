// Package handlers provides HTTP handlers for hedging suggestions.
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
	"github.com/aristath/portfolio-analytics/internal/modules/hedging"
)

// Handler handles hedging HTTP requests
type Handler struct {
	service *hedging.Service
	log     zerolog.Logger
}

// NewHandler creates a new hedging handler
func NewHandler(service *hedging.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "hedging").Logger(),
	}
}

// HandleGetHedging handles GET /api/portfolios/{id}/hedging
func (h *Handler) HandleGetHedging(w http.ResponseWriter, r *http.Request) {
	req := hedging.DefaultRequest()
	var err error
	if req.TargetProtection, err = floatParam(r, "target_protection", req.TargetProtection); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TargetPremium, err = floatParam(r, "target_premium", req.TargetPremium); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.PortfolioHedging(r.Context(), chi.URLParam(r, "id"), req)
	switch {
	case err == nil:
	case domain.IsRequestError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	default:
		h.log.Error().Err(err).Msg("Failed to build hedging suggestions")
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

const maxChainBytes = 5 << 20

// quoteInput is one contract of an uploaded chain. Dates are YYYY-MM-DD or
// RFC 3339; an empty as_of means today.
type quoteInput struct {
	Ticker            string  `json:"ticker"`
	OptionType        string  `json:"option_type"`
	StrikePrice       float64 `json:"strike_price"`
	ExpirationDate    string  `json:"expiration_date"`
	AsOf              string  `json:"as_of"`
	BidPrice          float64 `json:"bid_price"`
	AskPrice          float64 `json:"ask_price"`
	LastPrice         float64 `json:"last_price"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	Delta             float64 `json:"delta"`
	Gamma             float64 `json:"gamma"`
	Theta             float64 `json:"theta"`
	Vega              float64 `json:"vega"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"open_interest"`
}

func (in quoteInput) quote() (domain.OptionQuote, error) {
	optionType, err := domain.ParseOptionType(in.OptionType)
	if err != nil {
		return domain.OptionQuote{}, err
	}
	expiration, err := parseDate(in.ExpirationDate)
	if err != nil {
		return domain.OptionQuote{}, fmt.Errorf("invalid expiration_date %q", in.ExpirationDate)
	}
	var asOf time.Time
	if strings.TrimSpace(in.AsOf) != "" {
		if asOf, err = parseDate(in.AsOf); err != nil {
			return domain.OptionQuote{}, fmt.Errorf("invalid as_of %q", in.AsOf)
		}
	}
	return domain.OptionQuote{
		Ticker:            in.Ticker,
		OptionType:        optionType,
		StrikePrice:       in.StrikePrice,
		ExpirationDate:    expiration,
		AsOf:              asOf,
		BidPrice:          in.BidPrice,
		AskPrice:          in.AskPrice,
		LastPrice:         in.LastPrice,
		ImpliedVolatility: in.ImpliedVolatility,
		Delta:             in.Delta,
		Gamma:             in.Gamma,
		Theta:             in.Theta,
		Vega:              in.Vega,
		Volume:            in.Volume,
		OpenInterest:      in.OpenInterest,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// HandleUploadChain handles POST /api/options
// Body: {"quotes": [...]}. Stored quotes replace earlier ones with the same
// contract and as-of date, and cached hedging results are dropped.
func (h *Handler) HandleUploadChain(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChainBytes)
	var body struct {
		Quotes []quoteInput `json:"quotes"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quotes := make([]domain.OptionQuote, len(body.Quotes))
	for i, in := range body.Quotes {
		q, err := in.quote()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("quote %d: %v", i, err))
			return
		}
		quotes[i] = q
	}

	result, err := h.service.StoreQuotes(r.Context(), quotes)
	switch {
	case err == nil:
	case domain.IsRequestError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.log.Error().Err(err).Int("quotes", len(quotes)).Msg("Failed to store options chain")
		h.writeError(w, http.StatusInternalServerError, "Failed to store options chain")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
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
