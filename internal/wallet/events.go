package wallet

import (
	"net/url"
	"sync"
)

// SignedMessage is a login message together with the wallet's signature of it
type SignedMessage struct {
	PublicKey string
	Message   string
	Signature string
}

// TransactionSigned is published once a signed transfer reached confirmed commitment
type TransactionSigned struct {
	Signature string
	// Context is the extra query the request's redirect path carried
	Context url.Values
}

// TransactionFailed is published when a sign-transaction request ends without a confirmed transfer.
// Signature is set when the transfer was submitted but its confirmation was not observed.
type TransactionFailed struct {
	Signature string
	Context   url.Values
	Err       error
}

type subscribers struct {
	mu        sync.RWMutex
	onState   []func(State)
	onMessage []func(SignedMessage)
	onTx      []func(TransactionSigned)
	onTxFail  []func(TransactionFailed)
}

// OnStateChange registers fn for connect and disconnect transitions
func (m *Machine) OnStateChange(fn func(State)) {
	m.subs.mu.Lock()
	defer m.subs.mu.Unlock()
	m.subs.onState = append(m.subs.onState, fn)
}

// OnMessageSigned registers fn for signed login messages
func (m *Machine) OnMessageSigned(fn func(SignedMessage)) {
	m.subs.mu.Lock()
	defer m.subs.mu.Unlock()
	m.subs.onMessage = append(m.subs.onMessage, fn)
}

// OnTransactionSigned registers fn for confirmed transfers
func (m *Machine) OnTransactionSigned(fn func(TransactionSigned)) {
	m.subs.mu.Lock()
	defer m.subs.mu.Unlock()
	m.subs.onTx = append(m.subs.onTx, fn)
}

// OnTransactionFailed registers fn for rejected or unconfirmed transfers
func (m *Machine) OnTransactionFailed(fn func(TransactionFailed)) {
	m.subs.mu.Lock()
	defer m.subs.mu.Unlock()
	m.subs.onTxFail = append(m.subs.onTxFail, fn)
}

func (s *subscribers) stateChanged(st State) {
	s.mu.RLock()
	fns := append(([]func(State))(nil), s.onState...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *subscribers) messageSigned(msg SignedMessage) {
	s.mu.RLock()
	fns := append(([]func(SignedMessage))(nil), s.onMessage...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (s *subscribers) transactionSigned(ev TransactionSigned) {
	s.mu.RLock()
	fns := append(([]func(TransactionSigned))(nil), s.onTx...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *subscribers) transactionFailed(ev TransactionFailed) {
	s.mu.RLock()
	fns := append(([]func(TransactionFailed))(nil), s.onTxFail...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
