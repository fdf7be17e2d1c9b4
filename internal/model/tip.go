package model

// TipRequest represents request for POST /tip
type TipRequest struct {
	ArtistID string `json:"artistId" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

// TipStatusResponse represents response for POST /tip, POST /tip/retry and GET /tip/status
type TipStatusResponse struct {
	State       string `json:"state"`
	ArtistID    string `json:"artistId,omitempty"`
	Amount      string `json:"amount,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Link        string `json:"link,omitempty"` // wallet link awaiting approval
	TxID        string `json:"txId,omitempty"`
	Signature   string `json:"signature,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Error       string `json:"error,omitempty"`
	Retryable   bool   `json:"retryable"`
}

// InitiateTipRequest is the backend body for POST /tip/initiate
type InitiateTipRequest struct {
	ID string `json:"id"`
}

// InitiateTipResponse is the backend reply for POST /tip/initiate
type InitiateTipResponse struct {
	SessionID string `json:"sessionId"`
}

// ConfirmTipRequest is the backend body for POST /tip/confirm
type ConfirmTipRequest struct {
	SignedTransaction string `json:"signedTransaction"`
	SessionID         string `json:"sessionId"`
}

// ConfirmTipResponse is the backend reply for POST /tip/confirm.
// Failures carry message and retryable instead of signature.
type ConfirmTipResponse struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// BackendError is the error body the backend returns on non-2xx
type BackendError struct {
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}
