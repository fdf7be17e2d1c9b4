package api

import (
	"net/http"

	"github.com/AlexZinkM/walletlink/internal/handler"

	log "github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Wallet *handler.WalletHandler
	Tip    *handler.TipHandler
	Fees   *handler.FeesHandler
	Auth   *handler.AuthHandler
}

// SetupRouter sets up router with handlers
func SetupRouter(h Handlers, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet redirect targets
	mux.HandleFunc("/login", h.Wallet.Callback)
	mux.HandleFunc("/tip/callback", h.Wallet.Callback)

	// Wallet endpoints
	mux.HandleFunc("/wallet/connect", h.Wallet.Connect)
	mux.HandleFunc("/wallet/disconnect", h.Wallet.Disconnect)
	mux.HandleFunc("/wallet/sign-message", h.Wallet.SignMessage)
	mux.HandleFunc("/wallet/status", h.Wallet.Status)
	mux.HandleFunc("/wallet/qr", h.Wallet.QR)

	// Fees
	mux.HandleFunc("/fees/quote", h.Fees.Quote)

	// Tip endpoints
	mux.HandleFunc("/tip", h.Tip.SendTip)
	mux.HandleFunc("/tip/retry", h.Tip.Retry)
	mux.HandleFunc("/tip/status", h.Tip.Status)
	mux.HandleFunc("/tips", h.Tip.Receipts)

	// Auth endpoints
	mux.HandleFunc("/auth/signin", h.Auth.SignIn)
	mux.HandleFunc("/auth/session", h.Auth.Session)
	mux.HandleFunc("/auth/signout", h.Auth.SignOut)

	return logRequests(mux, logger.WithField("component", "http"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request with its status
func logRequests(next http.Handler, logger *log.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.status,
		}).Debug("request")
	})
}
