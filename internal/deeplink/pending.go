package deeplink

import (
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingRequest correlates an outbound wallet request with the redirect that completes it
type PendingRequest struct {
	Token        string
	Kind         Kind
	RedirectLink string
	Context      url.Values
	CreatedAt    time.Time
}

// Registry tracks in-flight requests. One request per kind; each is consumed once.
type Registry struct {
	links *Links
	now   func() time.Time

	mu      sync.Mutex
	byToken map[string]*PendingRequest
	byKind  map[Kind]string
}

// NewRegistry creates an empty registry
func NewRegistry(links *Links) *Registry {
	return &Registry{
		links:   links,
		now:     time.Now,
		byToken: make(map[string]*PendingRequest),
		byKind:  make(map[Kind]string),
	}
}

// Register opens a new pending request for redirectPath, which must carry a request marker
func (r *Registry) Register(kind Kind, redirectPath string) (*PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byKind[kind]; busy {
		return nil, ErrRequestInFlight
	}

	token := uuid.NewString()
	link, scope, err := r.links.Resolve(redirectPath, token)
	if err != nil {
		return nil, err
	}

	req := &PendingRequest{
		Token:        token,
		Kind:         kind,
		RedirectLink: link,
		Context:      scope,
		CreatedAt:    r.now(),
	}
	r.byToken[token] = req
	r.byKind[kind] = token
	return req, nil
}

// Consume removes and returns the pending request matching token and kind
func (r *Registry) Consume(token string, kind Kind) (*PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byToken[token]
	if !ok || req.Kind != kind {
		return nil, ErrUnknownRequest
	}
	delete(r.byToken, token)
	delete(r.byKind, kind)
	return req, nil
}

// Cancel drops the in-flight request of kind, if any, and returns it
func (r *Registry) Cancel(kind Kind) *PendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byKind[kind]
	if !ok {
		return nil
	}
	req := r.byToken[token]
	delete(r.byToken, token)
	delete(r.byKind, kind)
	return req
}

// InFlight reports whether a request of kind awaits its callback
func (r *Registry) InFlight(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKind[kind]
	return ok
}

// Clear drops everything
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken = make(map[string]*PendingRequest)
	r.byKind = make(map[Kind]string)
}
