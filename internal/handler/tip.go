package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AlexZinkM/walletlink/internal/events"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/tip"
)

// TipService runs tips
type TipService interface {
	SendTip(ctx context.Context, artistID, amount string) (*model.TipStatusResponse, error)
	Retry(ctx context.Context) (*model.TipStatusResponse, error)
	Status() *model.TipStatusResponse
}

// ReceiptLister reads the receipt ledger
type ReceiptLister interface {
	ListReceipts(ctx context.Context, req *model.ReceiptsRequest) (*model.ReceiptsResponse, error)
}

// TrackSource reports what the station is playing
type TrackSource interface {
	NowPlaying() *events.Track
}

// TipHandler serves the tip endpoints
type TipHandler struct {
	tips     TipService
	receipts ReceiptLister
	tracks   TrackSource
}

// NewTipHandler creates a TipHandler. tracks may be nil.
func NewTipHandler(tips TipService, receipts ReceiptLister, tracks TrackSource) *TipHandler {
	return &TipHandler{tips: tips, receipts: receipts, tracks: tracks}
}

// SendTip handles POST /tip
// @Summary      Send a tip
// @Description  Initiates a tip and hands the transfer to the wallet for signing.
// @Description  Without artistId the artist of the playing track is tipped.
// @Tags         tip
// @Accept       json
// @Produce      json
// @Param        request  body      model.TipRequest  true  "Tip data"
// @Success      200      {object}  model.TipStatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      502      {object}  model.TipStatusResponse
// @Router       /tip [post]
func (h *TipHandler) SendTip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.TipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ArtistID == "" && h.tracks != nil {
		if track := h.tracks.NowPlaying(); track != nil && track.Artist != nil {
			req.ArtistID = track.Artist.ID
		}
	}

	status, err := h.tips.SendTip(r.Context(), req.ArtistID, req.Amount)
	h.respond(w, status, err)
}

// Retry handles POST /tip/retry
// @Summary      Retry tip confirmation
// @Description  Re-confirms a retryable failure with the same signed transaction
// @Tags         tip
// @Produce      json
// @Success      200  {object}  model.TipStatusResponse
// @Failure      409  {object}  model.ErrorResponse
// @Failure      502  {object}  model.TipStatusResponse
// @Router       /tip/retry [post]
func (h *TipHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	status, err := h.tips.Retry(r.Context())
	h.respond(w, status, err)
}

// Status handles GET /tip/status
// @Summary      Tip status
// @Description  Returns the current or last confirmed tip
// @Tags         tip
// @Produce      json
// @Success      200  {object}  model.TipStatusResponse
// @Router       /tip/status [get]
func (h *TipHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.tips.Status())
}

func (h *TipHandler) respond(w http.ResponseWriter, status *model.TipStatusResponse, err error) {
	var failure *tip.Failure
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, status)
	case errors.As(err, &failure) && status != nil:
		writeJSON(w, http.StatusBadGateway, status)
	case errors.Is(err, tip.ErrInvalidAmount), errors.Is(err, tip.ErrMissingArtist):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, tip.ErrWalletNotConnected):
		writeErrorCode(w, http.StatusConflict, "wallet_not_connected", err)
	case errors.Is(err, tip.ErrTipInProgress), errors.Is(err, tip.ErrNotRetryable), errors.Is(err, tip.ErrNothingToConfirm):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// Receipts handles GET /tips
// @Summary      Tip receipts
// @Description  Lists confirmed tips with optional filters, newest first
// @Tags         tip
// @Produce      json
// @Param        artistId   query     string  false  "Artist id"
// @Param        from       query     string  false  "From (RFC3339)"
// @Param        to         query     string  false  "To (RFC3339)"
// @Param        minAmount  query     string  false  "Minimum amount in SOL"
// @Param        maxAmount  query     string  false  "Maximum amount in SOL"
// @Param        limit      query     int     false  "Max receipts"
// @Success      200        {object}  model.ReceiptsResponse
// @Failure      400        {object}  model.ErrorResponse
// @Router       /tips [get]
func (h *TipHandler) Receipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	req, err := parseReceiptsRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.receipts.ListReceipts(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseReceiptsRequest(r *http.Request) (*model.ReceiptsRequest, error) {
	q := r.URL.Query()
	req := &model.ReceiptsRequest{}

	if v := q.Get("artistId"); v != "" {
		req.ArtistID = &v
	}
	if v := q.Get("minAmount"); v != "" {
		req.MinAmount = &v
	}
	if v := q.Get("maxAmount"); v != "" {
		req.MaxAmount = &v
	}
	for key, dst := range map[string]**time.Time{"from": &req.From, "to": &req.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New(key + " must be RFC3339")
		}
		*dst = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("limit must be a number")
		}
		req.Limit = n
	}
	return req, nil
}
