package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMinDelay = 2 * time.Second
	defaultMaxDelay = 5 * time.Second
)

var ErrNotConnected = errors.New("station channel not connected")

// Handler receives every decoded event
type Handler func(Event)

// Client keeps a websocket to the station open and decodes what it receives
type Client struct {
	url      string
	dialer   *websocket.Dialer
	handler  Handler
	logger   *log.Entry
	minDelay time.Duration
	maxDelay time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	nowPlaying *Track
}

// NewClient creates a client for wsURL. handler may be nil.
func NewClient(wsURL string, handler Handler, logger *log.Logger) *Client {
	return &Client{
		url:      wsURL,
		dialer:   &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		handler:  handler,
		logger:   logger.WithField("component", "events"),
		minDelay: defaultMinDelay,
		maxDelay: defaultMaxDelay,
	}
}

// Run connects and keeps reconnecting until ctx is done
func (c *Client) Run(ctx context.Context) error {
	delay := c.minDelay
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = c.minDelay
		}
		c.logger.WithError(err).WithField("retryIn", delay).Warn("station channel dropped")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxDelay)
	}
}

// session runs one connection until it fails. connected reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	c.logger.Info("station channel connected")
	if err := c.Emit(EventJoinStation, nil); err != nil {
		return true, err
	}
	if err := c.Emit(EventLoadChat, nil); err != nil {
		return true, err
	}

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return true, err
		}
		ev, err := Decode(env)
		if err != nil {
			c.logger.WithError(err).Debug("skipping station frame")
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	if info, ok := ev.(StationInfo); ok && info.CurrentTrack != nil {
		c.mu.Lock()
		track := *info.CurrentTrack
		c.nowPlaying = &track
		c.mu.Unlock()
	}
	if c.handler != nil {
		c.handler(ev)
	}
}

// Emit sends one envelope on the live connection
func (c *Client) Emit(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	return c.conn.WriteJSON(msg)
}

// JoinChat announces the signed-in listener to the chat station
func (c *Client) JoinChat(token, station string) error {
	return c.Emit(EventJoinChat, map[string]string{"token": token, "station": station})
}

// NowPlaying returns the last track the station announced
func (c *Client) NowPlaying() *Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nowPlaying == nil {
		return nil
	}
	track := *c.nowPlaying
	return &track
}
