package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/solana"
)

// SessionService signs the listener in and out
type SessionService interface {
	SignIn(ctx context.Context) (string, error)
	SignOut() error
	Status() session.Status
}

// AuthHandler serves the sign-in endpoints
type AuthHandler struct {
	sessions SessionService
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(sessions SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// SignIn handles POST /auth/signin
// @Summary      Sign in with wallet
// @Description  Connects the wallet when needed and asks it to sign the login message.
// @Description  Poll GET /auth/session for the result.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.SignInResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	link, err := h.sessions.SignIn(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrSignInInProgress) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeErrorCode(w, walletErrorStatus(err), walletErrorCode(err), err)
		return
	}

	resp := model.SignInResponse{
		Success: true,
		Message: "Approve the request in Phantom Wallet",
		Stage:   string(h.sessions.Status().Stage),
		URL:     link,
	}
	if qr, err := solana.QRCode(link); err == nil {
		resp.QR = qr
	}
	writeJSON(w, http.StatusOK, resp)
}

// Session handles GET /auth/session
// @Summary      Sign-in status
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.SignInResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	st := h.sessions.Status()
	writeJSON(w, http.StatusOK, model.SignInResponse{
		Success: st.Stage == session.StageSignedIn,
		User:    st.User,
		Stage:   string(st.Stage),
		Message: st.Error,
	})
}

// SignOut handles POST /auth/signout
// @Summary      Sign out
// @Description  Drops the wallet session, the stored session and the app token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.SignInResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if err := h.sessions.SignOut(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SignInResponse{
		Success: true,
		Message: "Signed out",
		Stage:   string(session.StageIdle),
	})
}
