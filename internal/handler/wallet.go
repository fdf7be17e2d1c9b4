package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/wallet"
	"github.com/AlexZinkM/walletlink/solana"

	log "github.com/sirupsen/logrus"
)

// WalletService is the wallet session the handler drives
type WalletService interface {
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) (string, error)
	SignMessage(ctx context.Context) (string, error)
	Snapshot() wallet.Snapshot
}

// Dispatcher completes wallet callbacks
type Dispatcher interface {
	Dispatch(ctx context.Context, rawURL string) (bool, error)
}

// LinkSource returns the last wallet link that was opened
type LinkSource interface {
	Last() string
}

// AlertSource hands out buffered user alerts
type AlertSource interface {
	Drain() []logging.Alert
}

// WalletHandler serves the wallet endpoints and the deep-link redirect target
type WalletHandler struct {
	wallet   WalletService
	gateway  Dispatcher
	links    LinkSource
	balances solana.BalanceSource
	alerts   AlertSource
	logger   *log.Entry
}

// NewWalletHandler creates a WalletHandler. balances and alerts may be nil.
func NewWalletHandler(w WalletService, gateway Dispatcher, links LinkSource, balances solana.BalanceSource, alerts AlertSource, logger *log.Logger) *WalletHandler {
	return &WalletHandler{
		wallet:   w,
		gateway:  gateway,
		links:    links,
		balances: balances,
		alerts:   alerts,
		logger:   logger.WithField("component", "http"),
	}
}

// Callback handles GET /login and GET /tip/callback
// @Summary      Wallet redirect target
// @Description  Receives the wallet's redirect and completes the pending request it belongs to
// @Tags         wallet
// @Produce      json
// @Param        request  query     string  true  "Request kind"
// @Param        rid      query     string  true  "Pending request token"
// @Success      200      {object}  model.WalletActionResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /login [get]
func (h *WalletHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	handled, err := h.gateway.Dispatch(r.Context(), r.URL.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	msg := "No pending wallet request"
	if handled {
		msg = "Wallet request completed"
	}
	writeJSON(w, http.StatusOK, model.WalletActionResponse{
		Success: handled,
		Message: msg,
		State:   string(h.wallet.Snapshot().State),
	})
}

// Connect handles POST /wallet/connect
// @Summary      Connect wallet
// @Description  Opens the wallet's connect screen and returns the link with a QR code of it
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletActionResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/connect [post]
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	link, err := h.wallet.Connect(r.Context())
	h.respondAction(w, link, err, "Approve the connection in Phantom Wallet")
}

// Disconnect handles POST /wallet/disconnect
// @Summary      Disconnect wallet
// @Description  Asks the wallet to end the session; a no-op when not connected
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletActionResponse
// @Router       /wallet/disconnect [post]
func (h *WalletHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	link, err := h.wallet.Disconnect(r.Context())
	if err == nil && link == "" {
		writeJSON(w, http.StatusOK, model.WalletActionResponse{
			Success: true,
			Message: "Wallet is not connected",
			State:   string(h.wallet.Snapshot().State),
		})
		return
	}
	h.respondAction(w, link, err, "Approve the disconnect in Phantom Wallet")
}

// SignMessage handles POST /wallet/sign-message
// @Summary      Sign login message
// @Description  Asks the connected wallet to sign the login message
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletActionResponse
// @Failure      400  {object}  model.ErrorResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/sign-message [post]
func (h *WalletHandler) SignMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	link, err := h.wallet.SignMessage(r.Context())
	h.respondAction(w, link, err, "Approve the message in Phantom Wallet")
}

func (h *WalletHandler) respondAction(w http.ResponseWriter, link string, err error, message string) {
	if err != nil {
		writeErrorCode(w, walletErrorStatus(err), walletErrorCode(err), err)
		return
	}

	resp := model.WalletActionResponse{
		Success: true,
		Message: message,
		State:   string(h.wallet.Snapshot().State),
		URL:     link,
	}
	if qr, err := solana.QRCode(link); err == nil {
		resp.QR = qr
	} else {
		h.logger.WithError(err).Warn("failed to render wallet link QR")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /wallet/status
// @Summary      Wallet status
// @Description  Returns the session state, balance and any alerts raised since the last poll
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletStatusResponse
// @Router       /wallet/status [get]
func (h *WalletHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	snap := h.wallet.Snapshot()
	resp := model.WalletStatusResponse{
		State:     string(snap.State),
		PublicKey: snap.PublicKey,
		LastTxID:  snap.LastTxID,
	}
	if snap.SignedMessage != nil {
		resp.SignedMessage = snap.SignedMessage.Message
		resp.Signature = snap.SignedMessage.Signature
	}
	if snap.PublicKey != "" && h.balances != nil {
		balance, err := solana.GetBalance(r.Context(), h.balances, snap.PublicKey)
		if err != nil {
			h.logger.WithError(err).Debug("balance unavailable")
		} else {
			resp.BalanceSOL = balance
		}
	}
	if h.alerts != nil {
		for _, a := range h.alerts.Drain() {
			resp.Alerts = append(resp.Alerts, fmt.Sprintf("%s: %s", a.Title, a.Message))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// QR handles GET /wallet/qr
// @Summary      QR of the last wallet link
// @Description  Renders the most recently opened wallet link as a PNG QR code
// @Tags         wallet
// @Produce      png
// @Success      200
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet/qr [get]
func (h *WalletHandler) QR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	link := h.links.Last()
	if link == "" {
		writeError(w, http.StatusNotFound, errors.New("no wallet link opened yet"))
		return
	}
	png, err := solana.QRCodePNG(link)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func walletErrorStatus(err error) int {
	switch {
	case errors.Is(err, deeplink.ErrRequestInFlight),
		errors.Is(err, wallet.ErrAlreadyConnected),
		errors.Is(err, wallet.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, solana.ErrInsufficientFunds),
		errors.Is(err, solana.ErrInvalidAddress),
		errors.Is(err, solana.ErrZeroAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func walletErrorCode(err error) string {
	switch {
	case errors.Is(err, deeplink.ErrRequestInFlight):
		return "request_in_flight"
	case errors.Is(err, wallet.ErrAlreadyConnected):
		return "already_connected"
	case errors.Is(err, wallet.ErrBusy):
		return "wallet_busy"
	case errors.Is(err, wallet.ErrNotConnected):
		return "wallet_not_connected"
	case errors.Is(err, solana.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return ""
	}
}
