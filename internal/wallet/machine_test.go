package wallet

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/logging"
	sol "github.com/AlexZinkM/walletlink/solana"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tipDestination = "2PN8XaGeHs6iyrjyuk66EjSXgWcsZ9PtSoaV1r1vhZYr"

// fakePhantom plays the wallet: it holds its own box key pair and a signing key
type fakePhantom struct {
	t      *testing.T
	box    *crypto.KeyPair
	signer solana.PrivateKey
	shared [crypto.KeySize]byte

	mu      sync.Mutex
	opened  []string
	openErr error
}

func newFakePhantom(t *testing.T) *fakePhantom {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return &fakePhantom{t: t, box: kp, signer: solana.NewWallet().PrivateKey}
}

func (f *fakePhantom) Open(_ context.Context, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, link)
	return f.openErr
}

func (f *fakePhantom) address() string {
	return f.signer.PublicKey().String()
}

func query(t *testing.T, link string) url.Values {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query()
}

func withParams(redirect string, params url.Values) string {
	return redirect + "&" + params.Encode()
}

// approveConnect answers a connect link the way the wallet does
func (f *fakePhantom) approveConnect(link string) string {
	q := query(f.t, link)
	dappKey, err := crypto.DecodeKey(q.Get("dapp_encryption_public_key"))
	require.NoError(f.t, err)
	f.shared = crypto.DeriveSharedSecret(dappKey, &f.box.SecretKey)

	nonce, data, err := crypto.Encrypt(connectPayload{PublicKey: f.address(), Session: "wallet-session"}, &f.shared)
	require.NoError(f.t, err)

	return withParams(q.Get("redirect_link"), url.Values{
		"phantom_encryption_public_key": {crypto.EncodeBase58(f.box.PublicKey[:])},
		"data":                          {crypto.EncodeBase58(data)},
		"nonce":                         {crypto.EncodeBase58(nonce[:])},
	})
}

// readRequest decrypts the payload of a signing link
func (f *fakePhantom) readRequest(link string, out any) {
	q := query(f.t, link)
	data, err := crypto.DecodeBase58(q.Get("payload"))
	require.NoError(f.t, err)
	nonce, err := crypto.DecodeNonce(q.Get("nonce"))
	require.NoError(f.t, err)
	require.NoError(f.t, crypto.Decrypt(data, nonce, &f.shared, out))
}

// reply answers a signing link with an encrypted result
func (f *fakePhantom) reply(link string, result any) string {
	nonce, data, err := crypto.Encrypt(result, &f.shared)
	require.NoError(f.t, err)
	return withParams(query(f.t, link).Get("redirect_link"), url.Values{
		"data":  {crypto.EncodeBase58(data)},
		"nonce": {crypto.EncodeBase58(nonce[:])},
	})
}

func (f *fakePhantom) reject(link, code, message string) string {
	return withParams(query(f.t, link).Get("redirect_link"), url.Values{
		"errorCode":    {code},
		"errorMessage": {message},
	})
}

type fakeChain struct {
	balance   uint64
	balErr    error
	submitErr error
	// submitSig is returned with submitErr, like a confirmation timeout
	submitSig string
	submitted [][]byte
}

func (c *fakeChain) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.HashFromBytes(bytes.Repeat([]byte{5}, 32)), nil
}

func (c *fakeChain) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return c.balance, c.balErr
}

func (c *fakeChain) SubmitAndConfirm(_ context.Context, raw []byte) (string, error) {
	c.submitted = append(c.submitted, raw)
	if c.submitErr != nil {
		return c.submitSig, c.submitErr
	}
	return sol.FirstSignature(raw)
}

type harness struct {
	machine *Machine
	gateway *deeplink.Gateway
	phantom *fakePhantom
	chain   *fakeChain
	alerts  *logging.AlertLog
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	logger := logging.Discard()
	links := deeplink.NewLinks(deeplink.LinkConfig{
		UseUniversalLinks: true,
		AppURL:            "https://nadiaradio.com",
		RedirectBaseURL:   "http://127.0.0.1:8080",
	})
	registry := deeplink.NewRegistry(links)
	h := &harness{
		gateway: deeplink.NewGateway(registry, logger),
		phantom: newFakePhantom(t),
		chain:   &fakeChain{balance: 10 * 1_000_000_000},
		alerts:  logging.NewAlertLog(logger, 10),
	}
	h.machine = New(Deps{
		Links:          links,
		Registry:       registry,
		Opener:         h.phantom,
		Chain:          h.chain,
		Notifier:       h.alerts,
		Logger:         logger,
		ConnectTimeout: timeout,
	})
	h.machine.Register(h.gateway)
	return h
}

func (h *harness) dispatch(t *testing.T, rawURL string) (bool, error) {
	t.Helper()
	return h.gateway.Dispatch(context.Background(), rawURL)
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	link, err := h.machine.Connect(context.Background())
	require.NoError(t, err)
	handled, err := h.dispatch(t, h.phantom.approveConnect(link))
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, StateConnected, h.machine.State())
}

func messages(alerts []logging.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Message)
	}
	return out
}

func TestConnect(t *testing.T) {
	h := newHarness(t, time.Minute)

	var states []State
	h.machine.OnStateChange(func(s State) { states = append(states, s) })

	link, err := h.machine.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, h.machine.State())
	assert.True(t, strings.HasPrefix(link, "https://phantom.app/ul/v1/connect?"))

	q := query(t, link)
	assert.Equal(t, "mainnet-beta", q.Get("cluster"))
	assert.Equal(t, "https://nadiaradio.com", q.Get("app_url"))
	assert.Contains(t, q.Get("redirect_link"), "request=phantom-connect")

	_, err = h.machine.Connect(context.Background())
	assert.ErrorIs(t, err, deeplink.ErrRequestInFlight)

	callback := h.phantom.approveConnect(link)
	handled, err := h.dispatch(t, callback)
	require.NoError(t, err)
	assert.True(t, handled)

	snap := h.machine.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, h.phantom.address(), snap.PublicKey)
	assert.Equal(t, []State{StateConnected}, states)

	// the same callback again is a no-op
	handled, err = h.dispatch(t, callback)
	require.NoError(t, err)
	assert.False(t, handled)

	_, err = h.machine.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestConnectTimeoutResets(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	link, err := h.machine.Connect(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return h.machine.State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, messages(h.alerts.Drain()), "Connection to Phantom Wallet timed out")

	handled, err := h.dispatch(t, h.phantom.approveConnect(link))
	require.NoError(t, err)
	assert.False(t, handled, "late callback is ignored")
	assert.Equal(t, StateDisconnected, h.machine.State())

	_, err = h.machine.Connect(context.Background())
	assert.NoError(t, err, "a new connect may start")
}

func TestConnectUsesFreshKeyPairAfterFailure(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	first, err := h.machine.Connect(context.Background())
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return h.machine.State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)

	second, err := h.machine.Connect(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t,
		query(t, first).Get("dapp_encryption_public_key"),
		query(t, second).Get("dapp_encryption_public_key"))

	_, err = h.dispatch(t, h.phantom.reject(second, "4001", "User rejected the request."))
	require.NoError(t, err)

	third, err := h.machine.Connect(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t,
		query(t, second).Get("dapp_encryption_public_key"),
		query(t, third).Get("dapp_encryption_public_key"))
}

func TestConnectOpenFailure(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.phantom.openErr = errors.New("no handler")

	_, err := h.machine.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateDisconnected, h.machine.State())
	assert.Equal(t, []string{"Failed to open Phantom Wallet"}, messages(h.alerts.Drain()))
}

func TestConnectRejected(t *testing.T) {
	h := newHarness(t, time.Minute)

	link, err := h.machine.Connect(context.Background())
	require.NoError(t, err)

	handled, err := h.dispatch(t, h.phantom.reject(link, "4001", "User rejected the request."))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateDisconnected, h.machine.State())
	assert.Equal(t, []string{"User rejected the request."}, messages(h.alerts.Drain()))
}

func TestConnectTamperedPayload(t *testing.T) {
	h := newHarness(t, time.Minute)

	link, err := h.machine.Connect(context.Background())
	require.NoError(t, err)

	callback := h.phantom.approveConnect(link)
	u, err := url.Parse(callback)
	require.NoError(t, err)
	q := u.Query()
	data, err := crypto.DecodeBase58(q.Get("data"))
	require.NoError(t, err)
	data[0] ^= 0xff
	q.Set("data", crypto.EncodeBase58(data))
	u.RawQuery = q.Encode()

	handled, err := h.dispatch(t, u.String())
	assert.True(t, handled)
	assert.ErrorIs(t, err, crypto.ErrDecryption)
	assert.Equal(t, StateDisconnected, h.machine.State())
	assert.Equal(t, []string{"Failed to connect to Phantom Wallet"}, messages(h.alerts.Drain()))
}

func TestSignMessage(t *testing.T) {
	h := newHarness(t, time.Minute)

	_, err := h.machine.SignMessage(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, []string{"Please connect to Phantom Wallet first"}, messages(h.alerts.Drain()))

	h.connect(t)

	var got []SignedMessage
	h.machine.OnMessageSigned(func(m SignedMessage) { got = append(got, m) })

	link, err := h.machine.SignMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSigningMessage, h.machine.State())
	assert.Contains(t, link, "/ul/v1/signMessage?")

	_, err = h.machine.SignMessage(context.Background())
	assert.ErrorIs(t, err, deeplink.ErrRequestInFlight)

	var req signMessagePayload
	h.phantom.readRequest(link, &req)
	assert.Equal(t, "wallet-session", req.Session)
	msg, err := crypto.DecodeBase58(req.Message)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(msg), "Sign in to Nadia Radio: "))

	handled, err := h.dispatch(t, h.phantom.reply(link, signMessageResult{Signature: "sig58"}))
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, got, 1)
	assert.Equal(t, string(msg), got[0].Message)
	assert.Equal(t, "sig58", got[0].Signature)
	assert.Equal(t, h.phantom.address(), got[0].PublicKey)
	assert.Equal(t, StateConnected, h.machine.State())
	assert.Equal(t, "sig58", h.machine.Snapshot().SignedMessage.Signature)
}

func TestSignMessageRejectedReturnsToConnected(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.connect(t)

	link, err := h.machine.SignMessage(context.Background())
	require.NoError(t, err)

	_, err = h.dispatch(t, h.phantom.reject(link, "4001", ""))
	require.NoError(t, err)
	assert.Equal(t, StateConnected, h.machine.State())
	assert.Equal(t, []string{"Unknown error occurred"}, messages(h.alerts.Drain()))
}

func TestSignTransaction(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.connect(t)

	var got []TransactionSigned
	h.machine.OnTransactionSigned(func(ev TransactionSigned) { got = append(got, ev) })

	link, err := h.machine.SignTransaction(context.Background(), TransferRequest{
		AmountSOL:    "0.01",
		Destination:  tipDestination,
		RedirectPath: "tip",
		Context:      url.Values{"tip_session": {"s-1"}},
		FeeLamports:  25_000,
	})
	require.NoError(t, err)
	assert.Equal(t, StateSigningTransaction, h.machine.State())

	var req signTransactionPayload
	h.phantom.readRequest(link, &req)
	assert.Equal(t, "wallet-session", req.Session)

	raw, err := crypto.DecodeBase58(req.Transaction)
	require.NoError(t, err)
	tx, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].IsZero(), "the wallet receives an unsigned transaction")

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(h.phantom.signer.PublicKey()) {
			return &h.phantom.signer
		}
		return nil
	})
	require.NoError(t, err)
	signed, err := tx.MarshalBinary()
	require.NoError(t, err)

	handled, err := h.dispatch(t, h.phantom.reply(link, signTransactionResult{Transaction: crypto.EncodeBase58(signed)}))
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, h.chain.submitted, 1)
	require.Len(t, got, 1)
	assert.Equal(t, tx.Signatures[0].String(), got[0].Signature)
	assert.Equal(t, "s-1", got[0].Context.Get("tip_session"))
	assert.Equal(t, StateConnected, h.machine.State())
	assert.Equal(t, got[0].Signature, h.machine.Snapshot().LastTxID)
}

func TestSignTransactionGuards(t *testing.T) {
	h := newHarness(t, time.Minute)

	tr := TransferRequest{AmountSOL: "0.01", Destination: tipDestination, RedirectPath: "tip"}
	_, err := h.machine.SignTransaction(context.Background(), tr)
	assert.ErrorIs(t, err, ErrNotConnected)

	h.connect(t)

	_, err = h.machine.SignTransaction(context.Background(), TransferRequest{AmountSOL: "0.01", Destination: tipDestination})
	assert.ErrorIs(t, err, ErrMissingRedirect)

	h.chain.balance = 1_000
	_, err = h.machine.SignTransaction(context.Background(), tr)
	assert.ErrorIs(t, err, sol.ErrInsufficientFunds)
	assert.Equal(t, StateConnected, h.machine.State())

	// an unreachable RPC does not block signing
	h.chain.balErr = errors.New("rpc down")
	_, err = h.machine.SignTransaction(context.Background(), tr)
	assert.NoError(t, err)
	assert.Equal(t, StateSigningTransaction, h.machine.State())
}

func TestSignTransactionSubmitFailure(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.connect(t)
	h.chain.submitErr = errors.New("blockhash not found")

	link, err := h.machine.SignTransaction(context.Background(), TransferRequest{
		AmountSOL: "0.01", Destination: tipDestination, RedirectPath: "tip",
		Context: url.Values{"tip_session": {"s-1"}},
	})
	require.NoError(t, err)
	h.alerts.Drain()

	var failed []TransactionFailed
	h.machine.OnTransactionFailed(func(ev TransactionFailed) { failed = append(failed, ev) })

	handled, err := h.dispatch(t, h.phantom.reply(link, signTransactionResult{Transaction: crypto.EncodeBase58([]byte{1, 2, 3})}))
	assert.True(t, handled)
	assert.Error(t, err)
	assert.Equal(t, StateConnected, h.machine.State())
	assert.Equal(t, []string{"Failed to sign or send transaction"}, messages(h.alerts.Drain()))
	assert.Len(t, h.chain.submitted, 1, "no retry")

	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].Signature)
	assert.Equal(t, "s-1", failed[0].Context.Get("tip_session"))
	assert.Error(t, failed[0].Err)
}

func TestSignTransactionConfirmTimeoutKeepsSignature(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.connect(t)
	h.chain.submitErr = errors.New("timed out waiting for confirmation")
	h.chain.submitSig = "landed-sig"

	var failed []TransactionFailed
	h.machine.OnTransactionFailed(func(ev TransactionFailed) { failed = append(failed, ev) })
	var signed []TransactionSigned
	h.machine.OnTransactionSigned(func(ev TransactionSigned) { signed = append(signed, ev) })

	link, err := h.machine.SignTransaction(context.Background(), TransferRequest{
		AmountSOL: "0.01", Destination: tipDestination, RedirectPath: "tip",
		Context: url.Values{"tip_session": {"s-1"}},
	})
	require.NoError(t, err)

	_, err = h.dispatch(t, h.phantom.reply(link, signTransactionResult{Transaction: crypto.EncodeBase58([]byte{1, 2, 3})}))
	assert.Error(t, err)

	assert.Empty(t, signed)
	require.Len(t, failed, 1)
	assert.Equal(t, "landed-sig", failed[0].Signature)
	assert.Equal(t, "s-1", failed[0].Context.Get("tip_session"))
}

func TestSignTransactionRejectedPublishesFailure(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.connect(t)

	var failed []TransactionFailed
	h.machine.OnTransactionFailed(func(ev TransactionFailed) { failed = append(failed, ev) })

	link, err := h.machine.SignTransaction(context.Background(), TransferRequest{
		AmountSOL: "0.01", Destination: tipDestination, RedirectPath: "tip",
		Context: url.Values{"tip_session": {"s-1"}},
	})
	require.NoError(t, err)

	_, err = h.dispatch(t, h.phantom.reject(link, "4001", "User rejected the request."))
	require.NoError(t, err)
	assert.Equal(t, StateConnected, h.machine.State())
	assert.Empty(t, h.chain.submitted)

	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].Signature)
	assert.Equal(t, "s-1", failed[0].Context.Get("tip_session"))
	assert.EqualError(t, failed[0].Err, "User rejected the request.")
}

func TestDisconnectClearsEvenOnError(t *testing.T) {
	h := newHarness(t, time.Minute)

	link, err := h.machine.Disconnect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, link, "no-op when disconnected")

	h.connect(t)
	link, err = h.machine.Disconnect(context.Background())
	require.NoError(t, err)

	var req disconnectPayload
	h.phantom.readRequest(link, &req)
	assert.Equal(t, "wallet-session", req.Session)

	handled, err := h.dispatch(t, h.phantom.reject(link, "-32603", "internal"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateDisconnected, h.machine.State())
	assert.Nil(t, h.machine.Record())
}

func TestRecordRestore(t *testing.T) {
	h := newHarness(t, time.Minute)
	assert.Nil(t, h.machine.Record())
	h.connect(t)

	record := h.machine.Record()
	require.NotNil(t, record)

	other := newHarness(t, time.Minute)
	require.NoError(t, other.machine.Restore(record))
	assert.Equal(t, StateConnected, other.machine.State())
	assert.Equal(t, h.phantom.address(), other.machine.PublicKey())
	assert.Equal(t, record, other.machine.Record())

	assert.ErrorIs(t, other.machine.Restore(nil), ErrInvalidSession)
	bad := *record
	bad.SharedSecret = "!!"
	assert.ErrorIs(t, other.machine.Restore(&bad), ErrInvalidSession)
}
