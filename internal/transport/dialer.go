package transport

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the read side of one push connection
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer establishes push connections. Injected so tests can simulate
// connection failures and scripted message streams.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the gorilla-backed production dialer
type wsDialer struct{}

// NewWebSocketDialer returns the production WebSocket dialer
func NewWebSocketDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
