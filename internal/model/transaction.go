package model

import (
	"fmt"
	"time"

	"github.com/AlexZinkM/walletlink/internal/common"
)

// TipReceipt represents a confirmed tip stored in the receipt ledger
type TipReceipt struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	ArtistID    string    `json:"artistId"`
	Amount      string    `json:"amount"`      // SOL
	PlatformFee string    `json:"platformFee"` // SOL
	NetworkFee  string    `json:"networkFee"`  // SOL
	TxID        string    `json:"txId"`        // signature of the submitted transfer
	Signature   string    `json:"signature"`   // signature returned by the backend
	ExplorerURL string    `json:"explorerUrl"`
	Payer       string    `json:"payer"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// ReceiptsResponse represents response for GET /tips
type ReceiptsResponse struct {
	TotalSOL string       `json:"total_sol"`
	Receipts []TipReceipt `json:"receipts"`
}

// ReceiptsRequest represents request parameters for GET /tips
type ReceiptsRequest struct {
	ArtistID  *string    `form:"artistId"`
	From      *time.Time `form:"from"`
	To        *time.Time `form:"to"`
	MinAmount *string    `form:"minAmount"`
	MaxAmount *string    `form:"maxAmount"`
	Limit     int        `form:"limit"`
}

// Validate validates ReceiptsRequest filter parameters.
func (r *ReceiptsRequest) Validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return fmt.Errorf("to date must be after or equal to from date")
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if r.MinAmount != nil {
		if _, err := common.SOLToLamports(*r.MinAmount); err != nil {
			return fmt.Errorf("invalid minAmount: %w", err)
		}
	}
	if r.MaxAmount != nil {
		if _, err := common.SOLToLamports(*r.MaxAmount); err != nil {
			return fmt.Errorf("invalid maxAmount: %w", err)
		}
	}
	if r.MinAmount != nil && r.MaxAmount != nil {
		cmp, err := common.CompareSOLAmounts(*r.MinAmount, *r.MaxAmount)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		if cmp == 1 {
			return fmt.Errorf("minAmount must be less than or equal to maxAmount")
		}
	}
	return nil
}
