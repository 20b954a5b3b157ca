package mcp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/gorilla/websocket"
)

// SocketConfig describes a remote tool server reachable over a persistent
// websocket connection.
type SocketConfig struct {
	// Endpoint is the ws:// or wss:// URL of the server.
	Endpoint string

	// HandshakeTimeout bounds the dial; 0 means 10 seconds.
	HandshakeTimeout time.Duration

	Info ClientInfo
}

// NewSocketClient dials the endpoint and performs the protocol handshake.
// Dial failures are returned to the caller so the backend can be marked
// failed without affecting other backends.
func NewSocketClient(ctx context.Context, cfg SocketConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mcp: socket endpoint is required")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, cfg.Endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "mcp: dial %s", cfg.Endpoint)
	}

	t := &wsTransport{
		conn:     conn,
		messages: make(chan []byte, 8),
	}
	go t.readLoop()

	client, err := NewClient(ctx, t, cfg.Info)
	if err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"endpoint", cfg.Endpoint,
	)
	return client, nil
}

// wsTransport frames JSON-RPC messages as websocket text frames. A background
// goroutine owns the read side so Receive honors context cancellation.
type wsTransport struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	messages chan []byte
	closed   atomic.Bool
}

func (t *wsTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			close(t.messages)
			return
		}
		t.messages <- data
	}
}

func (t *wsTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-t.messages:
		if !ok {
			return nil, errors.New("socket connection closed by server")
		}
		return msg, nil
	}
}

func (t *wsTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}
