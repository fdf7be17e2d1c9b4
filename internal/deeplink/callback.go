// Package deeplink receives wallet redirects and builds the outbound wallet links.
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind is the request marker the wallet echoes back in the redirect link
type Kind string

const (
	KindConnect         Kind = "phantom-connect"
	KindLogout          Kind = "phantom-logout"
	KindSignMessage     Kind = "phantom-sign"
	KindSignTransaction Kind = "sign-transaction"
)

const (
	ParamRequest = "request"
	ParamToken   = "rid"

	defaultErrorMessage = "Unknown error occurred"
)

var (
	// ErrNotWalletCallback is returned for empty URLs and URLs without a known request marker.
	// Callers treat it as a silent no-op.
	ErrNotWalletCallback = errors.New("not a wallet callback")
	// ErrUnknownRequest means the callback matches no in-flight request (already consumed, expired or forged)
	ErrUnknownRequest = errors.New("no pending request for callback")
	// ErrRequestInFlight rejects a second request of a kind that is still awaiting its callback
	ErrRequestInFlight = errors.New("request of this kind already in flight")
)

// ParseKind validates a request marker
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindConnect, KindLogout, KindSignMessage, KindSignTransaction:
		return k, true
	}
	return "", false
}

// Callback is a classified inbound wallet redirect
type Callback struct {
	Kind         Kind
	Token        string
	Params       url.Values
	ErrorCode    string
	ErrorMessage string
}

// IsError reports whether the wallet answered with errorCode
func (c *Callback) IsError() bool {
	return c.ErrorCode != ""
}

// Get returns a query parameter of the callback
func (c *Callback) Get(key string) string {
	return c.Params.Get(key)
}

// Require returns the named parameters or an error naming the first missing one
func (c *Callback) Require(keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := c.Params.Get(k)
		if v == "" {
			return nil, fmt.Errorf("missing required parameter %q", k)
		}
		out = append(out, v)
	}
	return out, nil
}

// Parse classifies an inbound URL
func Parse(rawURL string) (*Callback, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrNotWalletCallback
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrNotWalletCallback
	}
	params := u.Query()

	kind, ok := ParseKind(params.Get(ParamRequest))
	if !ok {
		return nil, ErrNotWalletCallback
	}

	cb := &Callback{
		Kind:   kind,
		Token:  params.Get(ParamToken),
		Params: params,
	}
	if code := params.Get("errorCode"); code != "" {
		cb.ErrorCode = code
		cb.ErrorMessage = params.Get("errorMessage")
		if cb.ErrorMessage == "" {
			cb.ErrorMessage = defaultErrorMessage
		}
	}
	return cb, nil
}
