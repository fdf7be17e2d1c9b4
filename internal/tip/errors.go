package tip

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid tip amount")
	ErrMissingArtist      = errors.New("artist id is required")
	ErrWalletNotConnected = errors.New("please connect your wallet first")
	ErrTipInProgress      = errors.New("a tip is already in progress")
	ErrNothingToConfirm   = errors.New("no signed tip to confirm")
	ErrNotRetryable       = errors.New("tip is not in a retryable state")
)

const (
	msgInitiateFailed = "Unable to tip at the moment."
	msgConfirmFailed  = "Failed to tip artist."
	msgPartial        = "Tip failed. Please try again."
	msgSendFailed     = "Tip transaction was not sent."
	msgUnconfirmed    = "Tip was sent but not confirmed yet. Please try again."
	msgWalletGone     = "Wallet disconnected before the tip was signed."
)

// Failure is a tip that the backend did not confirm
type Failure struct {
	Message   string
	Retryable bool
}

func (f *Failure) Error() string {
	return f.Message
}
