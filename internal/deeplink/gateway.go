package deeplink

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Handler completes one kind of wallet request
type Handler func(ctx context.Context, cb *Callback, req *PendingRequest) error

// Gateway classifies inbound URLs and hands each one to exactly one handler
type Gateway struct {
	registry *Registry
	handlers map[Kind]Handler
	logger   *log.Entry
}

// NewGateway creates a gateway over registry
func NewGateway(registry *Registry, logger *log.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		handlers: make(map[Kind]Handler),
		logger:   logger.WithField("component", "deeplink"),
	}
}

// Handle registers the handler for kind, replacing any previous one
func (g *Gateway) Handle(kind Kind, h Handler) {
	g.handlers[kind] = h
}

// Dispatch routes rawURL. It reports false without error when the URL is not a
// wallet callback or matches no pending request; both are no-ops.
func (g *Gateway) Dispatch(ctx context.Context, rawURL string) (bool, error) {
	cb, err := Parse(rawURL)
	if errors.Is(err, ErrNotWalletCallback) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	h, ok := g.handlers[cb.Kind]
	if !ok {
		g.logger.WithField("kind", cb.Kind).Warn("no handler for wallet callback")
		return false, nil
	}

	req, err := g.registry.Consume(cb.Token, cb.Kind)
	if err != nil {
		g.logger.WithFields(log.Fields{"kind": cb.Kind, "rid": cb.Token}).Debug("ignoring callback without pending request")
		return false, nil
	}

	g.logger.WithFields(log.Fields{
		"kind":  cb.Kind,
		"rid":   cb.Token,
		"error": cb.ErrorCode,
	}).Info("wallet callback")

	if err := h(ctx, cb, req); err != nil {
		return true, fmt.Errorf("failed to handle %s callback: %w", cb.Kind, err)
	}
	return true, nil
}
