package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

// DefaultReconnectDelay paces reconnect attempts when none is configured.
// Must never be zero: a zero delay is a tight retry loop against a dead
// server.
const DefaultReconnectDelay = 2 * time.Second

// ErrClosed is returned when connecting a client that was torn down
var ErrClosed = errors.New("transport client is closed")

// Handler receives every decoded push update, in subscription order
type Handler func(models.CabUpdate)

type subscription struct {
	id int
	fn Handler
}

// Client owns one logical push connection. On connection loss it schedules
// exactly one reconnect attempt after a fixed delay and retries forever;
// callers observe only a gap in updates, never a terminal failure.
type Client struct {
	url    string
	delay  time.Duration
	dialer Dialer

	mu         sync.Mutex
	subs       []subscription
	nextSubID  int
	conn       Conn
	connecting bool
	retryTimer *time.Timer
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a push transport client
func NewClient(cfg models.TransportConfig, dialer Dialer) *Client {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Client{
		url:    cfg.URL,
		delay:  delay,
		dialer: dialer,
	}
}

// Subscribe registers a fan-out handler and returns its id.
// Registrations survive reconnects.
func (c *Client) Subscribe(fn Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.subs = append(c.subs, subscription{id: c.nextSubID, fn: fn})
	return c.nextSubID
}

// Unsubscribe removes a previously registered handler
func (c *Client) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Connect establishes the push connection and starts the read loop. The
// first dial error is returned for visibility, but the client keeps
// retrying regardless.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.ctx == nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
	c.mu.Unlock()

	return c.connect()
}

// connect performs one dial attempt, guarded so at most one is in flight
func (c *Client) connect() error {
	c.mu.Lock()
	if c.closed || c.connecting || c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	ctx := c.ctx
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.url)

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		if !c.closed {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		logger.Warn("Push connection attempt failed",
			logger.String("url", c.url),
			logger.Duration("retry_in", c.delay),
			logger.Err(err))
		return err
	}
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	logger.Info("Push connection established", logger.String("url", c.url))
	go c.readLoop(conn)
	return nil
}

// scheduleReconnectLocked arms the single pending reconnect timer.
// Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.retryTimer != nil {
		return
	}
	c.retryTimer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		c.retryTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.connect()
		}
	})
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			closed := c.closed
			if !closed {
				c.scheduleReconnectLocked()
			}
			c.mu.Unlock()
			if !closed {
				logger.Warn("Push connection lost",
					logger.Duration("retry_in", c.delay),
					logger.Err(err))
			}
			return
		}
		c.dispatch(data)
	}
}

// dispatch decodes one message and fans it out. Decode failures drop the
// message and never reach handlers.
func (c *Client) dispatch(data []byte) {
	var update models.CabUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		logger.Debug("Dropping undecodable push message", logger.Err(err))
		return
	}
	if update.ObservedAt.IsZero() {
		update.ObservedAt = models.Now()
	}

	c.mu.Lock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		c.invoke(s, update)
	}
}

// invoke isolates handler faults from the read loop and from other handlers
func (c *Client) invoke(s subscription, update models.CabUpdate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Push handler panicked",
				logger.Int("subscription", s.id),
				logger.String("panic", fmt.Sprintf("%v", r)))
		}
	}()
	s.fn(update)
}

// Close tears the client down: the read loop stops and no reconnect timer
// fires afterwards
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
