package deeplink

import (
	"context"
	"sync"

	"github.com/pkg/browser"
)

// Opener hands a wallet link to the OS
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context, link string) error

func (f OpenerFunc) Open(ctx context.Context, link string) error {
	return f(ctx, link)
}

// BrowserOpener opens links with the desktop's default handler
type BrowserOpener struct{}

func (BrowserOpener) Open(_ context.Context, link string) error {
	return browser.OpenURL(link)
}

// Handoff remembers the last link so it can be shown as a QR code or returned over
// the API, then forwards to next when set.
type Handoff struct {
	next Opener

	mu   sync.RWMutex
	last string
}

// NewHandoff wraps next; next may be nil
func NewHandoff(next Opener) *Handoff {
	return &Handoff{next: next}
}

func (h *Handoff) Open(ctx context.Context, link string) error {
	h.mu.Lock()
	h.last = link
	h.mu.Unlock()

	if h.next == nil {
		return nil
	}
	return h.next.Open(ctx, link)
}

// Last returns the most recently opened link
func (h *Handoff) Last() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
