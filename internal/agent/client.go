package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrClosed is returned by Send after the connection has been closed.
var ErrClosed = errors.New("agent: connection closed")

// Client is a WebSocket client for the agent backend. Dial it, consume
// Events() from one goroutine, and Send user messages from another. The
// events channel is closed when the connection drops.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	logger    *slog.Logger
	events    chan Event

	mu     sync.Mutex
	closed bool
}

// Dial connects to the agent backend and starts the read loop. The token,
// when non-empty, is sent as a bearer Authorization header on the handshake.
func Dial(ctx context.Context, url, token, sessionID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + token}}
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("agent: dial %s: %w", url, err)
	}

	c := &Client{
		conn:      conn,
		sessionID: sessionID,
		logger:    logger,
		events:    make(chan Event, 16),
	}
	go c.readLoop(context.WithoutCancel(ctx))
	return c, nil
}

// Events returns the stream of agent output events. Closed on disconnect.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send forwards one user message to the agent backend.
func (c *Client) Send(ctx context.Context, message, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(userMessage{
		SessionID: c.sessionID,
		Message:   message,
		Model:     model,
	})
	if err != nil {
		return fmt.Errorf("agent: marshal message: %w", err)
	}

	data, err := json.Marshal(envelope{
		Type:      msgUserMessage,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("agent: marshal envelope: %w", err)
	}

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("agent: write: %w", err)
	}
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close(websocket.StatusNormalClosure, "client shutdown")
}

// readLoop decodes inbound envelopes and forwards events until the
// connection drops, then closes the events channel.
func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.closed = true
			c.mu.Unlock()
			if !wasClosed {
				c.logger.Error("agent: read failed", "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Error("agent: malformed envelope", "error", err)
			continue
		}
		if env.Type != msgEvent {
			c.logger.Debug("agent: ignoring envelope", "type", env.Type)
			continue
		}

		var ev Event
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			c.logger.Error("agent: malformed event payload", "error", err)
			continue
		}
		c.events <- ev
	}
}
