// Package wallet drives a Phantom-compatible wallet through its deep-link handshake.
//
// A Machine owns one wallet session. Every outbound request is registered with the
// deeplink registry, and the matching callback completes it through the gateway.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/solana"

	log "github.com/sirupsen/logrus"
)

// State of the wallet session
type State string

const (
	StateDisconnected       State = "disconnected"
	StateConnecting         State = "connecting"
	StateConnected          State = "connected"
	StateSigningMessage     State = "signing-message"
	StateSigningTransaction State = "signing-transaction"
)

// AlertTitle is the title of every user-facing wallet alert
const AlertTitle = "Phantom Wallet"

const (
	defaultConnectTimeout = 15 * time.Second
	defaultLoginPath      = "login"
	loginMessagePrefix    = "Sign in to Nadia Radio: "
)

var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrAlreadyConnected = errors.New("wallet already connected")
	ErrMissingRedirect  = errors.New("missing redirect link")
	ErrBusy             = errors.New("wallet is busy with another request")
	ErrInvalidSession   = errors.New("invalid wallet session record")
)

// Chain is the cluster access the machine needs to build and submit transfers
type Chain interface {
	solana.BlockhashSource
	solana.BalanceSource
	SubmitAndConfirm(ctx context.Context, raw []byte) (string, error)
}

// Deps wires a Machine
type Deps struct {
	Links    *deeplink.Links
	Registry *deeplink.Registry
	Opener   deeplink.Opener
	Chain    Chain
	Notifier logging.Notifier
	Logger   *log.Logger

	// ConnectTimeout resets a connect that got no callback; 15s when zero
	ConnectTimeout time.Duration
	// LoginPath is the redirect path of connect, logout and sign-message callbacks
	LoginPath string
}

// Machine is the wallet session state machine
type Machine struct {
	links          *deeplink.Links
	registry       *deeplink.Registry
	opener         deeplink.Opener
	chain          Chain
	notifier       logging.Notifier
	logger         *log.Entry
	connectTimeout time.Duration
	loginPath      string
	now            func() time.Time

	mu            sync.Mutex
	state         State
	dapp          *crypto.KeyPair
	sharedSecret  *[crypto.KeySize]byte
	publicKey     string
	session       string
	connectTimer  *time.Timer
	connectToken  string
	pendingMsg    string
	signedMessage *SignedMessage
	lastTx        string

	subs subscribers
}

// New creates a disconnected machine
func New(deps Deps) *Machine {
	if deps.ConnectTimeout <= 0 {
		deps.ConnectTimeout = defaultConnectTimeout
	}
	if deps.LoginPath == "" {
		deps.LoginPath = defaultLoginPath
	}
	return &Machine{
		links:          deps.Links,
		registry:       deps.Registry,
		opener:         deps.Opener,
		chain:          deps.Chain,
		notifier:       deps.Notifier,
		logger:         deps.Logger.WithField("component", "wallet"),
		connectTimeout: deps.ConnectTimeout,
		loginPath:      deps.LoginPath,
		now:            time.Now,
		state:          StateDisconnected,
	}
}

// Register installs the callback handlers on gw
func (m *Machine) Register(gw *deeplink.Gateway) {
	gw.Handle(deeplink.KindConnect, m.onConnect)
	gw.Handle(deeplink.KindLogout, m.onDisconnect)
	gw.Handle(deeplink.KindSignMessage, m.onSignMessage)
	gw.Handle(deeplink.KindSignTransaction, m.onSignTransaction)
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a wallet session is held, signing included
func (m *Machine) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != ""
}

// PublicKey returns the connected wallet address, or "" when disconnected
func (m *Machine) PublicKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publicKey
}

// Connect opens the wallet's connect screen and returns the link it opened.
// A connect already in flight is left alone and ErrRequestInFlight is returned.
func (m *Machine) Connect(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.state {
	case StateConnecting:
		m.mu.Unlock()
		return "", deeplink.ErrRequestInFlight
	case StateDisconnected:
	default:
		m.mu.Unlock()
		return "", ErrAlreadyConnected
	}

	// every connect cycle gets a fresh dapp key pair
	m.dropDappLocked()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.dapp = kp

	req, err := m.registry.Register(deeplink.KindConnect, deeplink.RedirectPath(m.loginPath, deeplink.KindConnect, nil))
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	params := url.Values{}
	params.Set("dapp_encryption_public_key", crypto.EncodeBase58(m.dapp.PublicKey[:]))
	params.Set("cluster", m.links.Cluster())
	params.Set("app_url", m.links.AppURL())
	params.Set("redirect_link", req.RedirectLink)
	link := m.links.WalletURL(deeplink.MethodConnect, params)

	m.state = StateConnecting
	m.connectToken = req.Token
	m.connectTimer = time.AfterFunc(m.connectTimeout, func() { m.connectExpired(req.Token) })
	m.mu.Unlock()

	m.logger.WithField("rid", req.Token).Info("opening wallet connect")

	if err := m.opener.Open(ctx, link); err != nil {
		m.mu.Lock()
		if m.state == StateConnecting && m.connectToken == req.Token {
			m.resetConnectLocked()
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		m.alert("Failed to open Phantom Wallet")
		return "", fmt.Errorf("failed to open wallet: %w", err)
	}
	return link, nil
}

// connectExpired resets a connect that never got its callback
func (m *Machine) connectExpired(token string) {
	m.mu.Lock()
	if m.state != StateConnecting || m.connectToken != token {
		m.mu.Unlock()
		return
	}
	m.resetConnectLocked()
	m.state = StateDisconnected
	m.mu.Unlock()

	m.logger.WithField("rid", token).Warn("wallet connect timed out")
	m.alert("Connection to Phantom Wallet timed out")
	m.subs.stateChanged(StateDisconnected)
}

// resetConnectLocked stops the connect timer and drops the pending connect with its key pair
func (m *Machine) resetConnectLocked() {
	if m.connectTimer != nil {
		m.connectTimer.Stop()
		m.connectTimer = nil
	}
	m.connectToken = ""
	m.registry.Cancel(deeplink.KindConnect)
	m.dropDappLocked()
}

// dropDappLocked wipes the dapp key pair of a connect that did not complete
func (m *Machine) dropDappLocked() {
	if m.dapp != nil {
		m.dapp.Wipe()
		m.dapp = nil
	}
}

// SignMessage asks the wallet to sign the login message and returns the link it opened
func (m *Machine) SignMessage(ctx context.Context) (string, error) {
	m.mu.Lock()
	if err := m.readyLocked(deeplink.KindSignMessage); err != nil {
		m.mu.Unlock()
		if errors.Is(err, ErrNotConnected) {
			m.alert("Please connect to Phantom Wallet first")
		}
		return "", err
	}

	message := fmt.Sprintf("%s%d", loginMessagePrefix, m.now().UnixMilli())
	payload := signMessagePayload{
		Session: m.session,
		Message: crypto.EncodeBase58([]byte(message)),
	}

	req, err := m.registry.Register(deeplink.KindSignMessage, deeplink.RedirectPath(m.loginPath, deeplink.KindSignMessage, nil))
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	link, err := m.signedLinkLocked(deeplink.MethodSignMessage, payload, req.RedirectLink)
	if err != nil {
		m.registry.Cancel(deeplink.KindSignMessage)
		m.mu.Unlock()
		m.alert("Failed to sign message")
		return "", err
	}
	m.state = StateSigningMessage
	m.pendingMsg = message
	m.mu.Unlock()

	if err := m.opener.Open(ctx, link); err != nil {
		m.revertSigning(deeplink.KindSignMessage, StateSigningMessage)
		m.alert("Failed to sign message")
		return "", fmt.Errorf("failed to open wallet: %w", err)
	}
	return link, nil
}

// TransferRequest describes a SOL transfer for the wallet to sign
type TransferRequest struct {
	AmountSOL   string
	Destination string
	// RedirectPath is where the wallet returns; it is scoped to sign-transaction
	RedirectPath string
	// Context rides along the redirect and comes back in TransactionSigned
	Context url.Values
	// FeeLamports is added to the amount in the balance pre-check
	FeeLamports uint64
}

// SignTransaction builds an unsigned transfer and hands it to the wallet.
// The signed transaction is submitted when the wallet calls back.
func (m *Machine) SignTransaction(ctx context.Context, tr TransferRequest) (string, error) {
	if tr.RedirectPath == "" {
		m.alert("Internal Server Error")
		return "", ErrMissingRedirect
	}
	redirectPath, err := scopeRedirect(tr.RedirectPath, tr.Context)
	if err != nil {
		m.alert("Internal Server Error")
		return "", err
	}

	m.mu.Lock()
	if err := m.readyLocked(deeplink.KindSignTransaction); err != nil {
		m.mu.Unlock()
		if errors.Is(err, ErrNotConnected) {
			m.alert("Please connect your wallet first")
		}
		return "", err
	}
	req, err := m.registry.Register(deeplink.KindSignTransaction, redirectPath)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.state = StateSigningTransaction
	from, session := m.publicKey, m.session
	m.mu.Unlock()

	link, err := m.prepareTransfer(ctx, from, session, tr, req.RedirectLink)
	if err != nil {
		m.revertSigning(deeplink.KindSignTransaction, StateSigningTransaction)
		if errors.Is(err, solana.ErrInsufficientFunds) {
			m.alert(err.Error())
		} else {
			m.alert("Failed to initiate transaction")
		}
		return "", err
	}

	if err := m.opener.Open(ctx, link); err != nil {
		m.revertSigning(deeplink.KindSignTransaction, StateSigningTransaction)
		m.alert("Failed to sign transaction")
		return "", fmt.Errorf("failed to open wallet: %w", err)
	}
	return link, nil
}

// prepareTransfer runs without the lock: it talks to the cluster
func (m *Machine) prepareTransfer(ctx context.Context, from, session string, tr TransferRequest, redirectLink string) (string, error) {
	transfer, err := solana.BuildTransfer(ctx, m.chain, from, tr.Destination, tr.AmountSOL)
	if err != nil {
		return "", err
	}

	// Best effort: an unreachable RPC does not block signing
	if err := solana.CheckFunds(ctx, m.chain, from, transfer.Lamports, tr.FeeLamports); err != nil {
		if errors.Is(err, solana.ErrInsufficientFunds) {
			return "", err
		}
		m.logger.WithError(err).Warn("balance pre-check skipped")
	}

	raw, err := solana.SerializeUnsigned(transfer.Tx)
	if err != nil {
		return "", err
	}

	payload := signTransactionPayload{
		Session:     session,
		Transaction: crypto.EncodeBase58(raw),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSigningTransaction {
		return "", ErrNotConnected
	}
	return m.signedLinkLocked(deeplink.MethodSignTransaction, payload, redirectLink)
}

// Disconnect asks the wallet to end the session. It is a no-op when not connected.
func (m *Machine) Disconnect(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.session == "" {
		m.mu.Unlock()
		return "", nil
	}

	req, err := m.registry.Register(deeplink.KindLogout, deeplink.RedirectPath(m.loginPath, deeplink.KindLogout, nil))
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	link, err := m.signedLinkLocked(deeplink.MethodDisconnect, disconnectPayload{Session: m.session}, req.RedirectLink)
	if err != nil {
		m.registry.Cancel(deeplink.KindLogout)
		m.mu.Unlock()
		m.alert("Failed to disconnect from Phantom Wallet")
		return "", err
	}
	m.mu.Unlock()

	if err := m.opener.Open(ctx, link); err != nil {
		m.registry.Cancel(deeplink.KindLogout)
		m.alert("Failed to disconnect from Phantom Wallet")
		return "", fmt.Errorf("failed to open wallet: %w", err)
	}
	return link, nil
}

// Forget drops the session locally without a wallet round trip
func (m *Machine) Forget() {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
	m.subs.stateChanged(StateDisconnected)
}

// Restore rehydrates a persisted wallet session and starts connected
func (m *Machine) Restore(record *model.WalletSession) error {
	if record == nil || record.Session == "" || !solana.IsValidAddress(record.PublicKey) {
		return ErrInvalidSession
	}
	shared, err := crypto.DecodeKeyBase64(record.SharedSecret)
	if err != nil {
		return fmt.Errorf("%w: shared secret: %v", ErrInvalidSession, err)
	}
	pub, err := crypto.DecodeKeyBase64(record.DappKeyPair.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: dapp public key: %v", ErrInvalidSession, err)
	}
	sec, err := crypto.DecodeKeyBase64(record.DappKeyPair.SecretKey)
	if err != nil {
		return fmt.Errorf("%w: dapp secret key: %v", ErrInvalidSession, err)
	}
	kp, err := crypto.KeyPairFromBytes(pub, sec)
	clear(sec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	var secret [crypto.KeySize]byte
	copy(secret[:], shared)
	clear(shared)

	m.mu.Lock()
	m.clearLocked()
	m.dapp = kp
	m.sharedSecret = &secret
	m.publicKey = record.PublicKey
	m.session = record.Session
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.WithField("publicKey", record.PublicKey).Info("wallet session restored")
	m.subs.stateChanged(StateConnected)
	return nil
}

// Record returns the persistable form of the session, or nil when disconnected
func (m *Machine) Record() *model.WalletSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == "" || m.sharedSecret == nil || m.dapp == nil {
		return nil
	}
	return &model.WalletSession{
		PublicKey:    m.publicKey,
		Session:      m.session,
		SharedSecret: crypto.EncodeBase64(m.sharedSecret[:]),
		DappKeyPair: model.DappKeyPair{
			PublicKey: crypto.EncodeBase64(m.dapp.PublicKey[:]),
			SecretKey: crypto.EncodeBase64(m.dapp.SecretKey[:]),
		},
	}
}

// Snapshot is the secret-free view of the machine
type Snapshot struct {
	State         State
	PublicKey     string
	SignedMessage *SignedMessage
	LastTxID      string
}

// Snapshot returns the current state without secrets
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:     m.state,
		PublicKey: m.publicKey,
		LastTxID:  m.lastTx,
	}
	if m.signedMessage != nil {
		msg := *m.signedMessage
		s.SignedMessage = &msg
	}
	return s
}

// readyLocked checks that a signing request of kind may start
func (m *Machine) readyLocked(kind deeplink.Kind) error {
	switch m.state {
	case StateConnected:
	case StateSigningMessage, StateSigningTransaction:
		if m.registry.InFlight(kind) {
			return deeplink.ErrRequestInFlight
		}
		return ErrBusy
	default:
		return ErrNotConnected
	}
	if m.session == "" || m.publicKey == "" || m.sharedSecret == nil || m.dapp == nil {
		return ErrNotConnected
	}
	return nil
}

// signedLinkLocked encrypts payload under the session secret and builds the wallet link
func (m *Machine) signedLinkLocked(method deeplink.Method, payload any, redirectLink string) (string, error) {
	nonce, sealed, err := crypto.Encrypt(payload, m.sharedSecret)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("dapp_encryption_public_key", crypto.EncodeBase58(m.dapp.PublicKey[:]))
	params.Set("nonce", crypto.EncodeBase58(nonce[:]))
	params.Set("redirect_link", redirectLink)
	params.Set("payload", crypto.EncodeBase58(sealed))
	return m.links.WalletURL(method, params), nil
}

// revertSigning returns to connected after a signing request failed to leave
func (m *Machine) revertSigning(kind deeplink.Kind, from State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.Cancel(kind)
	if m.state == from {
		m.state = StateConnected
	}
	if kind == deeplink.KindSignMessage {
		m.pendingMsg = ""
	}
}

// clearLocked drops every secret and pending request
func (m *Machine) clearLocked() {
	if m.connectTimer != nil {
		m.connectTimer.Stop()
		m.connectTimer = nil
	}
	m.registry.Clear()
	if m.sharedSecret != nil {
		clear(m.sharedSecret[:])
	}
	if m.dapp != nil {
		m.dapp.Wipe()
	}
	m.sharedSecret = nil
	m.dapp = nil
	m.publicKey = ""
	m.session = ""
	m.connectToken = ""
	m.pendingMsg = ""
	m.signedMessage = nil
	m.lastTx = ""
	m.state = StateDisconnected
}

func (m *Machine) alert(message string) {
	if m.notifier != nil {
		m.notifier.Alert(AlertTitle, message)
	}
}

// scopeRedirect pins path to the sign-transaction kind and merges extra context into it
func scopeRedirect(path string, extra url.Values) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingRedirect, err)
	}
	q := u.Query()
	for k, vs := range extra {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(deeplink.ParamRequest, string(deeplink.KindSignTransaction))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
