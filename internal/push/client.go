package push

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trimreview/internal/api"
	"trimreview/internal/auth"
	"trimreview/internal/instruction"
)

const defaultHandshakeTimeout = 10 * time.Second

// Dialer opens push connections to the store.
type Dialer struct {
	URL              string
	Credentials      auth.CredentialProvider
	HandshakeTimeout time.Duration
}

// Dial connects to the push endpoint.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	header := http.Header{}
	if err := auth.Apply(ctx, d.Credentials, header); err != nil {
		return nil, fmt.Errorf("push credentials: %w", err)
	}
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("push dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("push dial %s: %w", d.URL, err)
	}
	return &Conn{ws: ws}, nil
}

// Conn is a live push connection. ReadRecord must be called from a single
// goroutine; Close may be called from any goroutine, any number of times.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// ReadRecord blocks for the next frame. Frames that do not decode to an
// instruction return an error wrapping instruction.ErrMalformedRecord and leave
// the connection open; any other error means the connection is gone.
func (c *Conn) ReadRecord() (instruction.Instruction, error) {
	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		return instruction.Instruction{}, err
	}
	if msgType != websocket.TextMessage {
		return instruction.Instruction{}, fmt.Errorf("%w: unexpected frame type %d", instruction.ErrMalformedRecord, msgType)
	}
	return api.DecodeInstruction(data)
}

// Close shuts the connection. Safe to call multiple times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
