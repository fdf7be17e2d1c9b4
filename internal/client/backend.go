package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AlexZinkM/walletlink/internal/model"

	log "github.com/sirupsen/logrus"
)

// ErrUnauthorized is returned for 401/403 replies
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx reply from the radio backend
type APIError struct {
	Status    int
	Message   string
	Retryable *bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// BackendClient talks to the radio app API.
// The Authorization header carries the raw app token.
type BackendClient struct {
	baseURL string
	client  *http.Client
	logger  *log.Entry

	mu    sync.RWMutex
	token string
}

// NewBackendClient creates a client for baseURL
func NewBackendClient(baseURL string, timeout time.Duration, logger *log.Logger) *BackendClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithField("component", "backend"),
	}
}

// SetToken sets the app token sent with every request; empty clears it
func (c *BackendClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current app token
func (c *BackendClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// InitiateTip handles POST /tip/initiate and returns the tip session id
func (c *BackendClient) InitiateTip(ctx context.Context, artistID string) (string, error) {
	var out model.InitiateTipResponse
	if err := c.do(ctx, http.MethodPost, "/tip/initiate", model.InitiateTipRequest{ID: artistID}, &out); err != nil {
		return "", fmt.Errorf("failed to initiate tip: %w", err)
	}
	if out.SessionID == "" {
		return "", errors.New("failed to initiate tip: no sessionId in response")
	}
	return out.SessionID, nil
}

// ConfirmTip handles POST /tip/confirm.
// A 2xx reply is returned as is, partial or not; the caller judges success.
func (c *BackendClient) ConfirmTip(ctx context.Context, signedTx, sessionID string) (*model.ConfirmTipResponse, error) {
	var out model.ConfirmTipResponse
	req := model.ConfirmTipRequest{SignedTransaction: signedTx, SessionID: sessionID}
	if err := c.do(ctx, http.MethodPost, "/tip/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthPhantom handles POST /auth/phantom
func (c *BackendClient) AuthPhantom(ctx context.Context, req model.PhantomAuthRequest) (*model.AuthSession, error) {
	var out model.PhantomAuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/phantom", req, &out); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if out.Session == nil || out.Session.Token == "" {
		return nil, errors.New("failed to sign in: no session in response")
	}
	return out.Session, nil
}

// Validate handles GET /auth/validate for the current token
func (c *BackendClient) Validate(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/auth/validate", nil, nil); err != nil {
		return fmt.Errorf("failed to validate session: %w", err)
	}
	return nil
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(log.Fields{"method": method, "path": path, "status": resp.StatusCode}).Debug("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var be model.BackendError
		if err := json.NewDecoder(resp.Body).Decode(&be); err == nil {
			apiErr.Message = be.Message
			apiErr.Retryable = be.Retryable
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
