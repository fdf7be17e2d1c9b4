// Package tip sends a tip: initiate with the backend, have the wallet sign and
// submit the transfer, then confirm with the backend.
package tip

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/common"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/fees"
	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/wallet"

	log "github.com/sirupsen/logrus"
)

// State of the current tip
type State string

const (
	StateIdle              State = "idle"
	StateInitiating        State = "initiating"
	StateAwaitingSignature State = "awaiting-signature"
	StateConfirming        State = "confirming"
	StateConfirmed         State = "confirmed"
	StateFailedRetryable   State = "failed-retryable"
	StateFailedTerminal    State = "failed-terminal"
)

const (
	// MinTip is the smallest tip in SOL
	MinTip = "0.005"
	// ContextKey carries the backend tip session through the wallet redirect
	ContextKey = "tip_session"

	alertTitle          = "Confirm Tip"
	defaultRedirectPath = "tip/callback"
)

// Backend is the radio API the orchestrator talks to
type Backend interface {
	InitiateTip(ctx context.Context, artistID string) (string, error)
	ConfirmTip(ctx context.Context, signedTx, sessionID string) (*model.ConfirmTipResponse, error)
}

// Wallet signs and submits the tip transfer
type Wallet interface {
	Connected() bool
	PublicKey() string
	SignTransaction(ctx context.Context, tr wallet.TransferRequest) (string, error)
	OnTransactionSigned(fn func(wallet.TransactionSigned))
	OnTransactionFailed(fn func(wallet.TransactionFailed))
	OnStateChange(fn func(wallet.State))
}

// Receipts stores confirmed tips
type Receipts interface {
	SaveReceipt(ctx context.Context, r *model.TipReceipt) error
}

// Config for an Orchestrator
type Config struct {
	Destination  string
	RedirectPath string
}

type intent struct {
	artistID  string
	amount    string
	sessionID string
	link      string
	txID      string // signature of the submitted transfer
	signature string // signature returned by the backend
	state     State
	failure   *Failure
}

func (it *intent) busy() bool {
	switch it.state {
	case StateInitiating, StateAwaitingSignature, StateConfirming:
		return true
	}
	return false
}

// Orchestrator runs one tip at a time
type Orchestrator struct {
	backend  Backend
	wallet   Wallet
	receipts Receipts
	notifier logging.Notifier
	logger   *log.Entry
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	current *intent
	last    *model.TipStatusResponse
}

// New creates an orchestrator and subscribes it to the wallet's signed transfers.
// receipts and notifier may be nil.
func New(backend Backend, w Wallet, receipts Receipts, notifier logging.Notifier, logger *log.Logger, cfg Config) *Orchestrator {
	if cfg.RedirectPath == "" {
		cfg.RedirectPath = defaultRedirectPath
	}
	o := &Orchestrator{
		backend:  backend,
		wallet:   w,
		receipts: receipts,
		notifier: notifier,
		logger:   logger.WithField("component", "tip"),
		cfg:      cfg,
		now:      time.Now,
	}
	w.OnTransactionSigned(o.onTransactionSigned)
	w.OnTransactionFailed(o.onTransactionFailed)
	w.OnStateChange(o.onWalletState)
	return o
}

// SendTip validates the amount, initiates the tip and hands the transfer to the wallet.
// Amounts below MinTip fail locally with ErrInvalidAmount. While a tip is initiating,
// awaiting its signature or confirming, ErrTipInProgress is returned.
func (o *Orchestrator) SendTip(ctx context.Context, artistID, amount string) (*model.TipStatusResponse, error) {
	if cmp, err := common.CompareSOLAmounts(amount, MinTip); err != nil || cmp < 0 {
		return nil, ErrInvalidAmount
	}
	if artistID == "" {
		return nil, ErrMissingArtist
	}
	if !o.wallet.Connected() {
		return nil, ErrWalletNotConnected
	}

	o.mu.Lock()
	if o.current != nil && o.current.busy() {
		o.mu.Unlock()
		return nil, ErrTipInProgress
	}
	it := &intent{artistID: artistID, amount: amount, state: StateInitiating}
	o.current = it
	o.last = nil
	o.mu.Unlock()

	logger := o.logger.WithFields(log.Fields{"artistId": artistID, "amount": amount})

	sessionID, err := o.backend.InitiateTip(ctx, artistID)
	if err != nil {
		logger.WithError(err).Error("tip initiation failed")
		f := &Failure{Message: backendMessage(err, msgInitiateFailed)}
		o.fail(it, f)
		o.alert(f.Message)
		return o.status(it), f
	}

	o.mu.Lock()
	it.sessionID = sessionID
	it.state = StateAwaitingSignature
	o.mu.Unlock()

	network := fees.NetworkFee(fees.Params{Signatures: fees.TipSignatures})
	link, err := o.wallet.SignTransaction(ctx, wallet.TransferRequest{
		AmountSOL:    amount,
		Destination:  o.cfg.Destination,
		RedirectPath: deeplink.RedirectPath(o.cfg.RedirectPath, deeplink.KindSignTransaction, nil),
		Context:      url.Values{ContextKey: {sessionID}},
		FeeLamports:  network.Lamports,
	})
	if err != nil {
		logger.WithError(err).Error("tip signing failed to start")
		f := &Failure{Message: err.Error()}
		o.fail(it, f)
		return o.status(it), f
	}

	o.mu.Lock()
	it.link = link
	o.mu.Unlock()

	logger.WithField("sessionId", sessionID).Info("tip awaiting wallet signature")
	return o.status(it), nil
}

func (o *Orchestrator) onTransactionSigned(ev wallet.TransactionSigned) {
	sessionID := ev.Context.Get(ContextKey)

	o.mu.Lock()
	it := o.current
	if it == nil || sessionID == "" || it.sessionID != sessionID || it.state != StateAwaitingSignature {
		o.mu.Unlock()
		o.logger.WithField("sessionId", sessionID).Debug("signed transaction matches no tip")
		return
	}
	it.txID = ev.Signature
	o.mu.Unlock()

	if _, err := o.Confirm(context.Background()); err != nil {
		o.logger.WithError(err).Warn("tip confirmation failed")
	}
}

// onTransactionFailed ends the tip whose transfer was rejected or not seen confirmed.
// A transfer that was submitted keeps its signature so Retry can confirm it.
func (o *Orchestrator) onTransactionFailed(ev wallet.TransactionFailed) {
	sessionID := ev.Context.Get(ContextKey)

	o.mu.Lock()
	it := o.current
	if it == nil || sessionID == "" || it.sessionID != sessionID || it.state != StateAwaitingSignature {
		o.mu.Unlock()
		o.logger.WithField("sessionId", sessionID).Debug("failed transaction matches no tip")
		return
	}
	f := &Failure{Message: msgSendFailed}
	if ev.Signature != "" {
		it.txID = ev.Signature
		f = &Failure{Message: msgUnconfirmed, Retryable: true}
	}
	failLocked(it, f)
	o.mu.Unlock()

	o.logger.WithError(ev.Err).WithFields(log.Fields{
		"sessionId": sessionID,
		"txId":      ev.Signature,
		"retryable": f.Retryable,
	}).Warn("tip transfer failed")
}

// onWalletState ends a tip still waiting on a wallet that disconnected
func (o *Orchestrator) onWalletState(st wallet.State) {
	if st != wallet.StateDisconnected {
		return
	}
	o.mu.Lock()
	it := o.current
	if it == nil || it.state != StateAwaitingSignature {
		o.mu.Unlock()
		return
	}
	failLocked(it, &Failure{Message: msgWalletGone})
	sessionID := it.sessionID
	o.mu.Unlock()

	o.logger.WithField("sessionId", sessionID).Warn("wallet disconnected before signing the tip")
}

// Confirm asks the backend to confirm the signed tip
func (o *Orchestrator) Confirm(ctx context.Context) (*model.TipStatusResponse, error) {
	o.mu.Lock()
	it := o.current
	if it == nil || it.txID == "" || (it.state != StateAwaitingSignature && it.state != StateFailedRetryable) {
		o.mu.Unlock()
		return nil, ErrNothingToConfirm
	}
	return o.confirmLocked(ctx, it)
}

// Retry re-confirms a retryable failure with the same signed transaction and session
func (o *Orchestrator) Retry(ctx context.Context) (*model.TipStatusResponse, error) {
	o.mu.Lock()
	it := o.current
	if it == nil || it.state != StateFailedRetryable {
		o.mu.Unlock()
		return nil, ErrNotRetryable
	}
	return o.confirmLocked(ctx, it)
}

// confirmLocked is entered with o.mu held and releases it
func (o *Orchestrator) confirmLocked(ctx context.Context, it *intent) (*model.TipStatusResponse, error) {
	it.state = StateConfirming
	it.failure = nil
	txID, sessionID := it.txID, it.sessionID
	o.mu.Unlock()

	logger := o.logger.WithFields(log.Fields{"sessionId": sessionID, "txId": txID})

	resp, err := o.backend.ConfirmTip(ctx, txID, sessionID)
	if f := classify(resp, err); f != nil {
		logger.WithError(err).WithField("retryable", f.Retryable).Warn("tip not confirmed")
		o.fail(it, f)
		return o.status(it), f
	}

	o.mu.Lock()
	it.signature = resp.Signature
	it.state = StateConfirmed
	o.mu.Unlock()

	logger.WithField("signature", resp.Signature).Info("tip confirmed")
	o.saveReceipt(ctx, it)

	status := o.status(it)
	o.mu.Lock()
	if o.current == it {
		o.current = nil
		o.last = status
	}
	o.mu.Unlock()
	return status, nil
}

// classify turns a confirm reply into a failure, or nil on success
func classify(resp *model.ConfirmTipResponse, err error) *Failure {
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			f := &Failure{Message: backendMessage(err, msgConfirmFailed)}
			if apiErr.Retryable != nil {
				f.Retryable = *apiErr.Retryable
			}
			return f
		}
		return &Failure{Message: msgConfirmFailed}
	}
	if resp != nil && resp.Success && resp.Signature != "" {
		return nil
	}

	f := &Failure{Message: msgPartial, Retryable: true}
	if resp != nil && resp.Retryable != nil {
		f.Retryable = *resp.Retryable
	}
	return f
}

func backendMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (o *Orchestrator) saveReceipt(ctx context.Context, it *intent) {
	if o.receipts == nil {
		return
	}
	quote := fees.QuoteTip(mustFloat(it.amount))
	receipt := &model.TipReceipt{
		SessionID:   it.sessionID,
		ArtistID:    it.artistID,
		Amount:      it.amount,
		PlatformFee: formatSOL(quote.PlatformFee),
		NetworkFee:  common.LamportsToSOL(quote.NetworkFee.Lamports),
		TxID:        it.txID,
		Signature:   it.signature,
		ExplorerURL: common.ExplorerURL(it.signature),
		Payer:       o.wallet.PublicKey(),
		ConfirmedAt: o.now().UTC(),
	}
	if err := o.receipts.SaveReceipt(context.WithoutCancel(ctx), receipt); err != nil {
		o.logger.WithError(err).Error("failed to save tip receipt")
	}
}

// Reset discards the current tip and the last result
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = nil
	o.last = nil
}

// Status returns the current tip, the last confirmed one, or idle
func (o *Orchestrator) Status() *model.TipStatusResponse {
	o.mu.Lock()
	it, last := o.current, o.last
	o.mu.Unlock()

	if it != nil {
		return o.status(it)
	}
	if last != nil {
		out := *last
		return &out
	}
	return &model.TipStatusResponse{State: string(StateIdle)}
}

func (o *Orchestrator) fail(it *intent, f *Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	failLocked(it, f)
}

func failLocked(it *intent, f *Failure) {
	it.failure = f
	if f.Retryable {
		it.state = StateFailedRetryable
	} else {
		it.state = StateFailedTerminal
	}
}

func (o *Orchestrator) status(it *intent) *model.TipStatusResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := &model.TipStatusResponse{
		State:     string(it.state),
		ArtistID:  it.artistID,
		Amount:    it.amount,
		SessionID: it.sessionID,
		Link:      it.link,
		TxID:      it.txID,
		Signature: it.signature,
	}
	if it.signature != "" {
		s.ExplorerURL = common.ExplorerURL(it.signature)
	}
	if it.failure != nil {
		s.Error = it.failure.Message
		s.Retryable = it.failure.Retryable
	}
	return s
}

func (o *Orchestrator) alert(message string) {
	if o.notifier != nil {
		o.notifier.Alert(alertTitle, message)
	}
}

func mustFloat(amount string) float64 {
	lamports, err := common.SOLToLamports(amount)
	if err != nil {
		return 0
	}
	return common.LamportsToSOLFloat(lamports)
}

func formatSOL(v float64) string {
	return strconv.FormatFloat(v, 'f', common.SOLDecimals, 64)
}
