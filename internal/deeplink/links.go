package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// Method is a wallet universal-link endpoint
type Method string

const (
	MethodConnect         Method = "connect"
	MethodDisconnect      Method = "disconnect"
	MethodSignMessage     Method = "signMessage"
	MethodSignTransaction Method = "signTransaction"
)

// LinkConfig describes where the wallet lives and where it should send us back
type LinkConfig struct {
	WalletHost        string
	UseUniversalLinks bool
	Cluster           string
	AppURL            string
	RedirectBaseURL   string
}

// Links builds outbound wallet URLs and inbound redirect links
type Links struct {
	cfg LinkConfig
}

// NewLinks creates a link builder
func NewLinks(cfg LinkConfig) *Links {
	if cfg.WalletHost == "" {
		cfg.WalletHost = "phantom.app"
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "mainnet-beta"
	}
	cfg.RedirectBaseURL = strings.TrimRight(cfg.RedirectBaseURL, "/")
	return &Links{cfg: cfg}
}

// Cluster returns the cluster name sent on connect
func (l *Links) Cluster() string {
	return l.cfg.Cluster
}

// AppURL returns the app_url sent on connect
func (l *Links) AppURL() string {
	return l.cfg.AppURL
}

// WalletURL returns https://<host>/ul/v1/<method>?<params> (or phantom://v1/ without universal links)
func (l *Links) WalletURL(method Method, params url.Values) string {
	base := "phantom://"
	if l.cfg.UseUniversalLinks {
		base = "https://" + l.cfg.WalletHost + "/ul/"
	}
	return fmt.Sprintf("%sv1/%s?%s", base, method, params.Encode())
}

// RedirectPath scopes a path to a request kind, with optional extra context.
// The result is relative; Resolve turns it into a full redirect link.
func RedirectPath(path string, kind Kind, extra url.Values) string {
	q := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(ParamRequest, string(kind))
	return strings.TrimLeft(path, "/") + "?" + q.Encode()
}

// Resolve appends the pending token to a redirect path and makes it absolute
func (l *Links) Resolve(redirectPath, token string) (string, url.Values, error) {
	u, err := url.Parse(redirectPath)
	if err != nil {
		return "", nil, fmt.Errorf("invalid redirect path: %w", err)
	}
	q := u.Query()
	if _, ok := ParseKind(q.Get(ParamRequest)); !ok {
		return "", nil, fmt.Errorf("redirect path %q carries no request marker", redirectPath)
	}

	scope := url.Values{}
	for k, vs := range q {
		if k == ParamRequest || k == ParamToken {
			continue
		}
		scope[k] = append([]string(nil), vs...)
	}

	q.Set(ParamToken, token)
	u.RawQuery = q.Encode()

	if u.IsAbs() {
		return u.String(), scope, nil
	}
	return l.cfg.RedirectBaseURL + "/" + strings.TrimLeft(u.String(), "/"), scope, nil
}
