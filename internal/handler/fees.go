package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AlexZinkM/walletlink/internal/fees"

	log "github.com/sirupsen/logrus"
)

// RateSource returns the SOL to USD rate
type RateSource interface {
	GetSOLToUSDRate(ctx context.Context) (float64, error)
}

// FeesHandler serves fee quotes
type FeesHandler struct {
	rates  RateSource
	logger *log.Entry
}

// NewFeesHandler creates a FeesHandler. rates may be nil.
func NewFeesHandler(rates RateSource, logger *log.Logger) *FeesHandler {
	return &FeesHandler{rates: rates, logger: logger.WithField("component", "http")}
}

// Quote handles GET /fees/quote
// @Summary      Tip fee quote
// @Description  Breaks a tip into network fee, platform fee and artist share.
// @Description  The artist share is also shown in USD when the rate is available.
// @Tags         fees
// @Produce      json
// @Param        amount  query     string  true  "Tip in SOL"
// @Success      200     {object}  fees.Quote
// @Failure      400     {object}  model.ErrorResponse
// @Router       /fees/quote [get]
func (h *FeesHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount < 0 {
		writeError(w, http.StatusBadRequest, errors.New("amount must be a non-negative number"))
		return
	}

	quote := fees.QuoteTip(amount)
	if h.rates != nil {
		rate, err := h.rates.GetSOLToUSDRate(r.Context())
		if err != nil {
			h.logger.WithError(err).Debug("USD rate unavailable")
		} else {
			usd := fmt.Sprintf("%.2f", quote.ArtistShare*rate)
			quote.ArtistShareUSD = &usd
		}
	}
	writeJSON(w, http.StatusOK, quote)
}
