package model

// WalletActionResponse represents response for POST /wallet/...
type WalletActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	State   string `json:"state"`
	URL     string `json:"url,omitempty"`
	QR      string `json:"QR,omitempty"` // base64 PNG of URL
}

// WalletStatusResponse represents response for GET /wallet/status
type WalletStatusResponse struct {
	State         string   `json:"state"`
	PublicKey     string   `json:"publicKey,omitempty"`
	SignedMessage string   `json:"signedMessage,omitempty"`
	Signature     string   `json:"signature,omitempty"`
	LastTxID      string   `json:"lastTxId,omitempty"`
	BalanceSOL    string   `json:"balanceSol,omitempty"`
	Alerts        []string `json:"alerts,omitempty"`
}

// SignInResponse represents response for POST /auth/signin, GET /auth/session and POST /auth/signout
type SignInResponse struct {
	Success bool   `json:"success"`
	Stage   string `json:"stage"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
	QR      string `json:"QR,omitempty"` // base64 PNG of URL
}
