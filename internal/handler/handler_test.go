package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/events"
	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/tip"
	"github.com/AlexZinkM/walletlink/internal/wallet"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

type fakeWallet struct {
	snap       wallet.Snapshot
	connectErr error
	link       string
}

func (f *fakeWallet) Connect(context.Context) (string, error) {
	if f.connectErr != nil {
		return "", f.connectErr
	}
	f.snap.State = wallet.StateConnecting
	return f.link, nil
}

func (f *fakeWallet) Disconnect(context.Context) (string, error) {
	if f.snap.PublicKey == "" {
		return "", nil
	}
	return f.link, nil
}

func (f *fakeWallet) SignMessage(context.Context) (string, error) {
	if f.snap.PublicKey == "" {
		return "", wallet.ErrNotConnected
	}
	return f.link, nil
}

func (f *fakeWallet) Snapshot() wallet.Snapshot { return f.snap }

type fakeGateway struct {
	got     string
	handled bool
	err     error
}

func (g *fakeGateway) Dispatch(_ context.Context, rawURL string) (bool, error) {
	g.got = rawURL
	return g.handled, g.err
}

type fixedLink string

func (l fixedLink) Last() string { return string(l) }

type fixedBalance uint64

func (b fixedBalance) GetBalance(context.Context, solanago.PublicKey) (uint64, error) {
	return uint64(b), nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func newWalletHandler(w *fakeWallet, gw *fakeGateway, link string, alerts AlertSource) *WalletHandler {
	return NewWalletHandler(w, gw, fixedLink(link), fixedBalance(1_500_000_000), alerts, logging.Discard())
}

func TestWalletConnect(t *testing.T) {
	w := &fakeWallet{link: "https://phantom.app/ul/v1/connect?x=1"}
	h := newWalletHandler(w, &fakeGateway{}, "", nil)

	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodPost, "/wallet/connect", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[model.WalletActionResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "connecting", resp.State)
	assert.Equal(t, w.link, resp.URL)
	assert.NotEmpty(t, resp.QR)
}

func TestWalletConnectInFlight(t *testing.T) {
	w := &fakeWallet{connectErr: deeplink.ErrRequestInFlight}
	h := newWalletHandler(w, &fakeGateway{}, "", nil)

	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodPost, "/wallet/connect", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_in_flight", decode[model.ErrorResponse](t, rec).Code)
}

func TestWalletMethodNotAllowed(t *testing.T) {
	h := newWalletHandler(&fakeWallet{}, &fakeGateway{}, "", nil)
	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodGet, "/wallet/connect", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWalletSignMessageRequiresConnection(t *testing.T) {
	h := newWalletHandler(&fakeWallet{}, &fakeGateway{}, "", nil)
	rec := httptest.NewRecorder()
	h.SignMessage(rec, httptest.NewRequest(http.MethodPost, "/wallet/sign-message", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "wallet_not_connected", decode[model.ErrorResponse](t, rec).Code)
}

func TestWalletDisconnectWithoutSession(t *testing.T) {
	h := newWalletHandler(&fakeWallet{}, &fakeGateway{}, "", nil)
	rec := httptest.NewRecorder()
	h.Disconnect(rec, httptest.NewRequest(http.MethodPost, "/wallet/disconnect", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.WalletActionResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.URL)
}

func TestWalletCallbackDispatches(t *testing.T) {
	gw := &fakeGateway{handled: true}
	h := newWalletHandler(&fakeWallet{snap: wallet.Snapshot{State: wallet.StateConnected}}, gw, "", nil)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/login?request=phantom-connect&rid=abc&nonce=n", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/login?request=phantom-connect&rid=abc&nonce=n", gw.got)
	resp := decode[model.WalletActionResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "connected", resp.State)

	gw.err = errors.New("bad payload")
	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/login?request=phantom-connect&rid=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletStatus(t *testing.T) {
	alerts := logging.NewAlertLog(logging.Discard(), 5)
	alerts.Alert(wallet.AlertTitle, "Connection to Phantom Wallet timed out")

	w := &fakeWallet{snap: wallet.Snapshot{
		State:         wallet.StateConnected,
		PublicKey:     testAddress,
		SignedMessage: &wallet.SignedMessage{Message: "Sign in to Nadia Radio: 1", Signature: "sig"},
		LastTxID:      "tx",
	}}
	h := newWalletHandler(w, &fakeGateway{}, "", alerts)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/wallet/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[model.WalletStatusResponse](t, rec)
	assert.Equal(t, "connected", resp.State)
	assert.Equal(t, "1.500000000", resp.BalanceSOL)
	assert.Equal(t, "sig", resp.Signature)
	assert.Equal(t, "tx", resp.LastTxID)
	assert.Equal(t, []string{"Phantom Wallet: Connection to Phantom Wallet timed out"}, resp.Alerts)
	assert.Empty(t, alerts.Drain(), "alerts are drained by the poll")
}

func TestWalletQR(t *testing.T) {
	h := newWalletHandler(&fakeWallet{}, &fakeGateway{}, "", nil)
	rec := httptest.NewRecorder()
	h.QR(rec, httptest.NewRequest(http.MethodGet, "/wallet/qr", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = newWalletHandler(&fakeWallet{}, &fakeGateway{}, "https://phantom.app/ul/v1/connect", nil)
	rec = httptest.NewRecorder()
	h.QR(rec, httptest.NewRequest(http.MethodGet, "/wallet/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

type fakeTips struct {
	artistID string
	status   *model.TipStatusResponse
	err      error
}

func (f *fakeTips) SendTip(_ context.Context, artistID, _ string) (*model.TipStatusResponse, error) {
	f.artistID = artistID
	return f.status, f.err
}

func (f *fakeTips) Retry(context.Context) (*model.TipStatusResponse, error) { return f.status, f.err }
func (f *fakeTips) Status() *model.TipStatusResponse                       { return f.status }

type fakeReceipts struct{ got *model.ReceiptsRequest }

func (f *fakeReceipts) ListReceipts(_ context.Context, req *model.ReceiptsRequest) (*model.ReceiptsResponse, error) {
	f.got = req
	return &model.ReceiptsResponse{TotalSOL: "0.010000000", Receipts: []model.TipReceipt{{SessionID: "s-1"}}}, nil
}

type nowPlaying struct{ track *events.Track }

func (n nowPlaying) NowPlaying() *events.Track { return n.track }

func TestSendTip(t *testing.T) {
	tips := &fakeTips{status: &model.TipStatusResponse{State: "awaiting-signature", SessionID: "s-1"}}
	h := NewTipHandler(tips, &fakeReceipts{}, nil)

	rec := httptest.NewRecorder()
	h.SendTip(rec, httptest.NewRequest(http.MethodPost, "/tip", strings.NewReader(`{"artistId":"a1","amount":"0.01"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", tips.artistID)
	assert.Equal(t, "s-1", decode[model.TipStatusResponse](t, rec).SessionID)
}

func TestSendTipDefaultsToPlayingArtist(t *testing.T) {
	tips := &fakeTips{status: &model.TipStatusResponse{}}
	h := NewTipHandler(tips, &fakeReceipts{}, nowPlaying{&events.Track{ID: "t", Artist: &events.Artist{ID: "dj"}}})

	rec := httptest.NewRecorder()
	h.SendTip(rec, httptest.NewRequest(http.MethodPost, "/tip", strings.NewReader(`{"amount":"0.01"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dj", tips.artistID)
}

func TestSendTipErrors(t *testing.T) {
	tests := []struct {
		name   string
		status *model.TipStatusResponse
		err    error
		code   int
	}{
		{"invalid amount", nil, tip.ErrInvalidAmount, http.StatusBadRequest},
		{"wallet", nil, tip.ErrWalletNotConnected, http.StatusConflict},
		{"busy", nil, tip.ErrTipInProgress, http.StatusConflict},
		{"backend", &model.TipStatusResponse{State: "failed-terminal", Error: "Unable to tip at the moment."},
			&tip.Failure{Message: "Unable to tip at the moment."}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTipHandler(&fakeTips{status: tt.status, err: tt.err}, &fakeReceipts{}, nil)
			rec := httptest.NewRecorder()
			h.SendTip(rec, httptest.NewRequest(http.MethodPost, "/tip", strings.NewReader(`{"artistId":"a","amount":"0.01"}`)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSendTipBadBody(t *testing.T) {
	h := NewTipHandler(&fakeTips{}, &fakeReceipts{}, nil)
	rec := httptest.NewRecorder()
	h.SendTip(rec, httptest.NewRequest(http.MethodPost, "/tip", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceipts(t *testing.T) {
	receipts := &fakeReceipts{}
	h := NewTipHandler(&fakeTips{}, receipts, nil)

	rec := httptest.NewRecorder()
	h.Receipts(rec, httptest.NewRequest(http.MethodGet, "/tips?artistId=a1&from=2025-01-01T00:00:00Z&minAmount=0.01&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, receipts.got)
	assert.Equal(t, "a1", *receipts.got.ArtistID)
	assert.Equal(t, 2025, receipts.got.From.Year())
	assert.Equal(t, 5, receipts.got.Limit)
	assert.Equal(t, "0.010000000", decode[model.ReceiptsResponse](t, rec).TotalSOL)

	for _, q := range []string{"from=yesterday", "limit=ten", "minAmount=1&maxAmount=0.5"} {
		rec = httptest.NewRecorder()
		h.Receipts(rec, httptest.NewRequest(http.MethodGet, "/tips?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

type fixedRate float64

func (r fixedRate) GetSOLToUSDRate(context.Context) (float64, error) { return float64(r), nil }

func TestFeesQuote(t *testing.T) {
	h := NewFeesHandler(fixedRate(4), logging.Discard())

	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodGet, "/fees/quote?amount=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var quote struct {
		PlatformFee    float64 `json:"platformFee"`
		ArtistShare    float64 `json:"artistShare"`
		ArtistShareUSD *string `json:"artistShareUsd"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, 0.013, quote.PlatformFee)
	assert.Equal(t, 0.986975, quote.ArtistShare)
	require.NotNil(t, quote.ArtistShareUSD)
	assert.Equal(t, "3.95", *quote.ArtistShareUSD)

	rec = httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodGet, "/fees/quote?amount=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeSessions struct {
	status  session.Status
	signErr error
	outs    int
}

func (f *fakeSessions) SignIn(context.Context) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.status.Stage = session.StageConnecting
	return "https://phantom.app/ul/v1/connect", nil
}

func (f *fakeSessions) SignOut() error {
	f.outs++
	return nil
}

func (f *fakeSessions) Status() session.Status { return f.status }

func TestAuthSignIn(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewAuthHandler(sessions)

	rec := httptest.NewRecorder()
	h.SignIn(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.SignInResponse](t, rec)
	assert.Equal(t, "connecting", resp.Stage)
	assert.NotEmpty(t, resp.QR)

	sessions.signErr = session.ErrSignInInProgress
	rec = httptest.NewRecorder()
	h.SignIn(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthSessionAndSignOut(t *testing.T) {
	sessions := &fakeSessions{status: session.Status{Stage: session.StageSignedIn, User: &model.User{Username: "listener"}}}
	h := NewAuthHandler(sessions)

	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	resp := decode[model.SignInResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "listener", resp.User.Username)

	rec = httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/auth/signout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sessions.outs)
}
