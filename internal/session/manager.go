// Package session signs the listener in with their wallet and keeps the resulting
// auth session (wallet session included) across restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/store"
	"github.com/AlexZinkM/walletlink/internal/wallet"

	log "github.com/sirupsen/logrus"
)

// Stage of an ongoing sign-in
type Stage string

const (
	StageIdle           Stage = "idle"
	StageConnecting     Stage = "connecting"
	StageSigning        Stage = "signing"
	StageAuthenticating Stage = "authenticating"
	StageSignedIn       Stage = "signed-in"
)

const (
	alertTitle  = "Sign In"
	authTimeout = 30 * time.Second
)

var ErrSignInInProgress = errors.New("sign-in already in progress")

// Backend authenticates a signed login message and validates tokens
type Backend interface {
	AuthPhantom(ctx context.Context, req model.PhantomAuthRequest) (*model.AuthSession, error)
	Validate(ctx context.Context) error
	SetToken(token string)
}

// Wallet is the part of the wallet machine sign-in drives
type Wallet interface {
	Connected() bool
	Connect(ctx context.Context) (string, error)
	SignMessage(ctx context.Context) (string, error)
	Forget()
	Restore(record *model.WalletSession) error
	Record() *model.WalletSession
	OnStateChange(fn func(wallet.State))
	OnMessageSigned(fn func(wallet.SignedMessage))
}

// Manager owns the auth session lifecycle: sign in, load at startup, sign out
type Manager struct {
	backend  Backend
	wallet   Wallet
	store    store.SessionStore
	notifier logging.Notifier
	logger   *log.Entry

	mu      sync.Mutex
	stage   Stage
	current *model.AuthSession
	lastErr string
}

// New creates a manager and subscribes it to wallet events. notifier may be nil.
func New(backend Backend, w Wallet, st store.SessionStore, notifier logging.Notifier, logger *log.Logger) *Manager {
	m := &Manager{
		backend:  backend,
		wallet:   w,
		store:    st,
		notifier: notifier,
		logger:   logger.WithField("component", "session"),
		stage:    StageIdle,
	}
	w.OnStateChange(m.onWalletState)
	w.OnMessageSigned(m.onMessageSigned)
	return m
}

// Load rehydrates the stored session and validates its token.
// A session the backend rejects is cleared. No stored session is not an error.
func (m *Manager) Load(ctx context.Context) error {
	session, err := m.store.Load()
	if errors.Is(err, store.ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	m.backend.SetToken(session.Token)
	if err := m.backend.Validate(ctx); err != nil {
		m.backend.SetToken("")
		if cerr := m.store.Clear(); cerr != nil {
			m.logger.WithError(cerr).Warn("failed to clear rejected session")
		}
		return fmt.Errorf("stored session rejected: %w", err)
	}

	if session.WalletSession != nil {
		if err := m.wallet.Restore(session.WalletSession); err != nil {
			m.logger.WithError(err).Warn("stored wallet session unusable, reconnect required")
		}
	}

	m.mu.Lock()
	m.current = session
	m.stage = StageSignedIn
	m.mu.Unlock()

	m.logger.WithField("user", session.User.Username).Info("session restored")
	return nil
}

// SignIn starts the wallet sign-in: connect when needed, then sign the login message.
// It returns the wallet link that was opened; the rest completes on wallet callbacks.
func (m *Manager) SignIn(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.stage {
	case StageConnecting, StageAuthenticating:
		m.mu.Unlock()
		return "", ErrSignInInProgress
	}
	m.lastErr = ""
	if m.wallet.Connected() {
		m.stage = StageSigning
	} else {
		m.stage = StageConnecting
	}
	stage := m.stage
	m.mu.Unlock()

	var (
		link string
		err  error
	)
	if stage == StageConnecting {
		link, err = m.wallet.Connect(ctx)
	} else {
		link, err = m.wallet.SignMessage(ctx)
	}
	if err != nil {
		m.fail(err, "")
		return "", err
	}
	return link, nil
}

func (m *Manager) onWalletState(st wallet.State) {
	m.mu.Lock()
	stage := m.stage
	switch {
	case stage == StageSignedIn:
		m.mu.Unlock()
		m.persistWallet()
		return
	case st == wallet.StateConnected && stage == StageConnecting:
		m.stage = StageSigning
		m.mu.Unlock()
	case st == wallet.StateDisconnected && (stage == StageConnecting || stage == StageSigning):
		m.stage = m.restingStageLocked()
		m.mu.Unlock()
		return
	default:
		m.mu.Unlock()
		return
	}

	if _, err := m.wallet.SignMessage(context.Background()); err != nil {
		m.fail(err, "")
	}
}

func (m *Manager) onMessageSigned(msg wallet.SignedMessage) {
	m.mu.Lock()
	if m.stage != StageSigning {
		m.mu.Unlock()
		return
	}
	m.stage = StageAuthenticating
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	session, err := m.backend.AuthPhantom(ctx, model.PhantomAuthRequest{
		PublicKey: msg.PublicKey,
		Message:   msg.Message,
		Signature: msg.Signature,
	})
	if err != nil {
		m.fail(err, "Failed to sign in with Phantom Wallet")
		return
	}

	session.WalletSession = m.wallet.Record()
	if session.Time == "" {
		session.Time = time.Now().UTC().Format(time.RFC3339)
	}
	m.backend.SetToken(session.Token)
	if err := m.store.Save(session); err != nil {
		// still signed in for this run
		m.logger.WithError(err).Error("failed to persist session")
	}

	m.mu.Lock()
	m.current = session
	m.stage = StageSignedIn
	m.mu.Unlock()

	m.logger.WithField("user", session.User.Username).Info("signed in")
}

// persistWallet rewrites the stored session with the wallet's current record
func (m *Manager) persistWallet() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	updated := *m.current
	updated.WalletSession = m.wallet.Record()
	m.current = &updated
	m.mu.Unlock()

	if err := m.store.Save(&updated); err != nil {
		m.logger.WithError(err).Warn("failed to persist wallet session change")
	}
}

// SignOut drops the wallet session, the stored blob and the token
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.current = nil
	m.stage = StageIdle
	m.lastErr = ""
	m.mu.Unlock()

	m.wallet.Forget()
	m.backend.SetToken("")

	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	m.logger.Info("signed out")
	return nil
}

// Status is a snapshot of the sign-in state
type Status struct {
	Stage Stage
	User  *model.User
	Error string
}

// Status returns the current sign-in state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{Stage: m.stage, Error: m.lastErr}
	if m.current != nil {
		user := m.current.User
		s.User = &user
	}
	return s
}

// Token returns the app token of the signed-in user, or ""
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func (m *Manager) fail(err error, alert string) {
	m.logger.WithError(err).Warn("sign-in failed")
	m.mu.Lock()
	m.stage = m.restingStageLocked()
	m.lastErr = err.Error()
	m.mu.Unlock()
	if alert != "" && m.notifier != nil {
		m.notifier.Alert(alertTitle, alert)
	}
}

func (m *Manager) restingStageLocked() Stage {
	if m.current != nil {
		return StageSignedIn
	}
	return StageIdle
}
