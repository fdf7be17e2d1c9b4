package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/solana"

	log "github.com/sirupsen/logrus"
)

type connectPayload struct {
	PublicKey string `json:"public_key"`
	Session   string `json:"session"`
}

type signMessagePayload struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

type signMessageResult struct {
	Signature string `json:"signature"`
}

type signTransactionPayload struct {
	Session     string `json:"session"`
	Transaction string `json:"transaction"`
}

type signTransactionResult struct {
	Transaction string `json:"transaction"`
}

type disconnectPayload struct {
	Session string `json:"session"`
}

// openCallback decrypts the data/nonce pair of a callback
func openCallback(cb *deeplink.Callback, shared *[crypto.KeySize]byte, out any) error {
	vals, err := cb.Require("data", "nonce")
	if err != nil {
		return err
	}
	data, err := crypto.DecodeBase58(vals[0])
	if err != nil {
		return err
	}
	nonce, err := crypto.DecodeNonce(vals[1])
	if err != nil {
		return err
	}
	return crypto.Decrypt(data, nonce, shared, out)
}

func (m *Machine) onConnect(_ context.Context, cb *deeplink.Callback, req *deeplink.PendingRequest) error {
	m.mu.Lock()
	if m.state != StateConnecting || m.connectToken != req.Token {
		m.mu.Unlock()
		return nil
	}
	if m.connectTimer != nil {
		m.connectTimer.Stop()
		m.connectTimer = nil
	}
	m.connectToken = ""

	if cb.IsError() {
		m.dropDappLocked()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.alert(cb.ErrorMessage)
		m.subs.stateChanged(StateDisconnected)
		return nil
	}

	err := m.completeConnectLocked(cb)
	if err != nil {
		m.dropDappLocked()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.logger.WithError(err).Error("wallet connect failed")
		m.alert("Failed to connect to Phantom Wallet")
		m.subs.stateChanged(StateDisconnected)
		return err
	}
	pk := m.publicKey
	m.mu.Unlock()

	m.logger.WithField("publicKey", pk).Info("wallet connected")
	m.subs.stateChanged(StateConnected)
	return nil
}

func (m *Machine) completeConnectLocked(cb *deeplink.Callback) error {
	phantomKey, err := cb.Require("phantom_encryption_public_key")
	if err != nil {
		return err
	}
	peer, err := crypto.DecodeKey(phantomKey[0])
	if err != nil {
		return err
	}
	if m.dapp == nil {
		return errors.New("no dapp key pair")
	}

	shared := crypto.DeriveSharedSecret(peer, &m.dapp.SecretKey)
	var payload connectPayload
	if err := openCallback(cb, &shared, &payload); err != nil {
		clear(shared[:])
		return err
	}
	if !solana.IsValidAddress(payload.PublicKey) || payload.Session == "" {
		clear(shared[:])
		return fmt.Errorf("wallet returned invalid session for %q", payload.PublicKey)
	}

	m.sharedSecret = &shared
	m.publicKey = payload.PublicKey
	m.session = payload.Session
	m.state = StateConnected
	return nil
}

func (m *Machine) onSignMessage(_ context.Context, cb *deeplink.Callback, _ *deeplink.PendingRequest) error {
	m.mu.Lock()
	if m.state != StateSigningMessage {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnected
	message := m.pendingMsg
	m.pendingMsg = ""

	if cb.IsError() {
		m.mu.Unlock()
		m.alert(cb.ErrorMessage)
		return nil
	}

	var result signMessageResult
	if err := openCallback(cb, m.sharedSecret, &result); err != nil || result.Signature == "" {
		m.mu.Unlock()
		if err == nil {
			err = errors.New("wallet returned no signature")
		}
		m.logger.WithError(err).Error("sign message failed")
		m.alert("Failed to sign message")
		return err
	}

	signed := SignedMessage{
		PublicKey: m.publicKey,
		Message:   message,
		Signature: result.Signature,
	}
	m.signedMessage = &signed
	m.mu.Unlock()

	m.subs.messageSigned(signed)
	return nil
}

func (m *Machine) onSignTransaction(ctx context.Context, cb *deeplink.Callback, req *deeplink.PendingRequest) error {
	m.mu.Lock()
	if m.state != StateSigningTransaction {
		m.mu.Unlock()
		return nil
	}

	if cb.IsError() {
		m.state = StateConnected
		m.mu.Unlock()
		m.alert(cb.ErrorMessage)
		m.subs.transactionFailed(TransactionFailed{Context: req.Context, Err: errors.New(cb.ErrorMessage)})
		return nil
	}

	var result signTransactionResult
	err := openCallback(cb, m.sharedSecret, &result)
	m.mu.Unlock()

	var raw []byte
	if err == nil {
		raw, err = crypto.DecodeBase58(result.Transaction)
	}
	if err == nil && len(raw) == 0 {
		err = errors.New("wallet returned no transaction")
	}

	var sig string
	if err == nil {
		// The callback may come from a short-lived request; submission must outlive it.
		sig, err = m.chain.SubmitAndConfirm(context.WithoutCancel(ctx), raw)
	}

	m.mu.Lock()
	if m.state == StateSigningTransaction {
		m.state = StateConnected
	}
	if err == nil {
		m.lastTx = sig
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.WithError(err).WithField("signature", sig).Error("sign transaction failed")
		m.alert("Failed to sign or send transaction")
		m.subs.transactionFailed(TransactionFailed{Signature: sig, Context: req.Context, Err: err})
		return err
	}

	m.logger.WithFields(log.Fields{"signature": sig, "rid": req.Token}).Info("transaction confirmed")
	m.subs.transactionSigned(TransactionSigned{Signature: sig, Context: req.Context})
	return nil
}

func (m *Machine) onDisconnect(_ context.Context, cb *deeplink.Callback, _ *deeplink.PendingRequest) error {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()

	if cb.IsError() {
		m.logger.WithField("error", cb.ErrorMessage).Warn("wallet reported an error on disconnect")
	}
	m.alert("Phantom Wallet disconnected successfully")
	m.subs.stateChanged(StateDisconnected)
	return nil
}
